// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-certpin/pkg/pinning"
	"github.com/jeremyhahn/go-certpin/pkg/policy"
)

// Default configuration values for the reporter.
const (
	// DefaultCollectorURI is the well-known default report endpoint,
	// included in the destination set unless a policy disables it.
	DefaultCollectorURI = "https://collector.certpin.io/v1/report"

	// DefaultQueueDepth is the default report queue capacity. Reports
	// submitted while the queue is full are dropped and counted.
	DefaultQueueDepth = 64

	// DefaultTimeout is the default HTTP delivery timeout per report.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default global outbound budget in
	// reports per second across all destinations.
	DefaultRateLimit = 1.0

	// DefaultRateBurst is the default outbound burst size.
	DefaultRateBurst = 5

	// DefaultWindow is the default dedupe window: at most one report
	// per (hostname, pin set, outcome, day) key within this span.
	DefaultWindow = 24 * time.Hour

	// DefaultSweepInterval is how often stale dedupe entries are evicted.
	DefaultSweepInterval = time.Hour

	// maxDestinationConcurrency bounds the per-report fan-out across
	// destination URIs.
	maxDestinationConcurrency = 2

	// maxResponseSize caps how much of a collector response is read.
	maxResponseSize = 1 << 16
)

// Config configures a Reporter.
type Config struct {
	// DefaultURI is the well-known collector added to every policy's
	// destination set unless the policy disables it. Defaults to
	// DefaultCollectorURI; set to "-" to run with no default collector.
	DefaultURI string

	// AppVersion and AppPlatform are caller-supplied metadata included
	// in every payload.
	AppVersion  string
	AppPlatform string

	// UserAgent is sent with every delivery request.
	UserAgent string

	// ReportUserTrustAnchors makes FailedUserDefinedTrustAnchor
	// outcomes reportable. Off by default: on platforms that support
	// the bypass, a user-installed anchor is a user choice.
	ReportUserTrustAnchors bool

	// QueueDepth is the submission queue capacity. Zero or negative
	// values are replaced with DefaultQueueDepth.
	QueueDepth int

	// Timeout is the HTTP delivery timeout. Zero value is replaced
	// with DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the global outbound budget in reports per second.
	// Zero value is replaced with DefaultRateLimit.
	RateLimit float64

	// RateBurst is the outbound burst size. Zero value is replaced
	// with DefaultRateBurst.
	RateBurst int

	// Window is the dedupe window. Zero value is replaced with
	// DefaultWindow.
	Window time.Duration

	// HTTPClient overrides the delivery client, mainly for tests.
	HTTPClient *http.Client

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// job is one deduplicated report awaiting delivery.
type job struct {
	payload Payload
	uris    []string
}

// Reporter delivers validation failure reports in the background. A
// single worker goroutine drains the queue and sends reports strictly
// one at a time, bounding outbound concurrency even under a burst of
// simultaneous pin failures. Submission never blocks and delivery
// errors never surface to the caller.
type Reporter struct {
	cfg     Config
	client  *http.Client
	queue   chan job
	dedupe  *dedupeTable
	limiter *rate.Limiter
	logger  *slog.Logger

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// New creates a Reporter and starts its background worker. A nil config
// uses all defaults.
func New(cfg *Config) *Reporter {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	switch c.DefaultURI {
	case "":
		c.DefaultURI = DefaultCollectorURI
	case "-":
		c.DefaultURI = ""
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	r := &Reporter{
		cfg:     c,
		client:  client,
		queue:   make(chan job, c.QueueDepth),
		dedupe:  newDedupeTable(c.Window, DefaultSweepInterval),
		limiter: rate.NewLimiter(rate.Limit(c.RateLimit), c.RateBurst),
		logger:  c.Logger.With("component", "reporter"),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Report submits a validation result for background delivery. It is
// fire-and-forget: non-reportable outcomes, duplicate reports within
// the rate window, empty destination sets and a full queue all result
// in the call silently doing nothing.
func (r *Reporter) Report(res pinning.Result, pol *policy.Policy) {
	if pol == nil || !r.reportable(res) {
		return
	}

	uris := r.destinations(pol)
	if len(uris) == 0 {
		return
	}

	if !r.dedupe.FirstSeen(dedupeKey(res, pol, time.Now())) {
		r.logger.Debug("report suppressed by rate window", "hostname", res.Hostname)
		return
	}

	j := job{
		payload: newPayload(res, pol, r.cfg.AppVersion, r.cfg.AppPlatform),
		uris:    uris,
	}

	select {
	case <-r.quit:
		r.dropped.Add(1)
	default:
		select {
		case r.queue <- j:
		default:
			r.dropped.Add(1)
			r.logger.Debug("report queue full, dropping", "hostname", res.Hostname)
		}
	}
}

// Dropped reports how many submissions were discarded due to a full
// queue or a closed reporter.
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the reporter: queued reports are delivered subject to the
// remaining rate budget, then the worker and sweeper exit. Close is
// idempotent and safe to call concurrently with Report.
func (r *Reporter) Close() error {
	r.closeOnce.Do(func() {
		close(r.quit)
		<-r.done
		r.dedupe.Stop()
	})
	return nil
}

// reportable applies the outcome filter: only failures are reported,
// and user-trust-anchor bypasses only when explicitly enabled.
func (r *Reporter) reportable(res pinning.Result) bool {
	if !res.Outcome.Failure() {
		return false
	}
	if res.Outcome == pinning.FailedUserDefinedTrustAnchor && !r.cfg.ReportUserTrustAnchors {
		return false
	}
	return true
}

// destinations builds the URI set for a policy: its configured report
// URIs plus the default collector unless disabled, deduplicated.
func (r *Reporter) destinations(pol *policy.Policy) []string {
	seen := make(map[string]struct{}, len(pol.ReportURIs)+1)
	uris := make([]string, 0, len(pol.ReportURIs)+1)

	add := func(uri string) {
		if uri == "" {
			return
		}
		if _, dup := seen[uri]; dup {
			return
		}
		seen[uri] = struct{}{}
		uris = append(uris, uri)
	}

	for _, uri := range pol.ReportURIs {
		add(uri)
	}
	if !pol.DisableDefaultReportURI {
		add(r.cfg.DefaultURI)
	}
	return uris
}

// run is the worker loop: one job at a time, in submission order. On
// shutdown any queued jobs are drained before the worker exits.
func (r *Reporter) run() {
	defer close(r.done)

	for {
		select {
		case <-r.quit:
			for {
				select {
				case j := <-r.queue:
					r.send(j, true)
				default:
					return
				}
			}
		case j := <-r.queue:
			r.send(j, false)
		}
	}
}

// send serializes the payload and posts it to every destination with a
// small fixed fan-out. During shutdown drain the rate budget is only
// consumed if immediately available, bounding Close latency.
func (r *Reporter) send(j job, draining bool) {
	if draining {
		if !r.limiter.Allow() {
			r.dropped.Add(1)
			return
		}
	} else if err := r.limiter.Wait(context.Background()); err != nil {
		return
	}

	body, err := json.Marshal(j.payload)
	if err != nil {
		r.logger.Warn("report serialization failed", "error", err)
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(maxDestinationConcurrency)
	for _, uri := range j.uris {
		uri := uri
		g.Go(func() error {
			r.post(uri, body)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // post never returns an error
}

// post delivers one payload to one destination. All failures are logged
// and dropped; reporting is best-effort by contract.
func (r *Reporter) post(uri string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("report request build failed", "uri", uri, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("report delivery failed", "uri", uri, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		r.logger.Warn("collector rejected report", "uri", uri, "status", resp.StatusCode)
		return
	}
	r.logger.Debug("report delivered", "uri", uri, "status", resp.StatusCode)
}
