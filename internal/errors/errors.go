// Package errors provides sentinel errors for lockbench operations.
package errors

import "errors"

// Environment errors
var (
	// ErrComposeNotFound indicates the docker compose CLI is not available.
	ErrComposeNotFound = errors.New("docker compose not found - please install Docker with the compose plugin")

	// ErrComposeInvalid indicates the compose file failed validation.
	ErrComposeInvalid = errors.New("compose file validation failed")

	// ErrMissingEnvRef indicates the compose file never references a
	// variable the harness injects, so the workload would silently ignore it.
	ErrMissingEnvRef = errors.New("compose file does not reference required variable")
)

// Benchmark errors
var (
	// ErrRunLocked indicates another benchmark run is in progress on this host.
	ErrRunLocked = errors.New("benchmark run is locked by another process")
)
