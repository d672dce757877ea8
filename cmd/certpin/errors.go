// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitPinFailure indicates a pin validation or derivation failure.
	ExitPinFailure = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPinValidationFailed is returned when an enforced pin validation fails.
	ErrPinValidationFailed = errors.New("pin validation failed")

	// ErrConnectFailed is returned when the TLS connection to the target host fails.
	ErrConnectFailed = errors.New("connection failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")

	// ErrDeriveFailed is returned when pin derivation from DNS fails.
	ErrDeriveFailed = errors.New("pin derivation failed")
)
