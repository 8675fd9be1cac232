package mcp

import "errors"

var (
	// ErrUnauthorized is returned when the security code does not match.
	ErrUnauthorized = errors.New("invalid security code")

	// ErrWritesDisabled is returned for writes when no security code is configured.
	ErrWritesDisabled = errors.New("writes are disabled: no security code configured")

	// ErrBackupDisabled is returned when no backup repository is configured.
	ErrBackupDisabled = errors.New("GitHub backup is not configured")

	// ErrInvalidInput is returned for missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)
