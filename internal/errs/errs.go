// Package errs defines the error taxonomy shared across the
// aggregation layers. Callers classify failures with errors.Is against
// these sentinels; layers add context with fmt.Errorf("...: %w", err).
package errs

import "errors"

var (
	// ErrPermissionDenied covers disabled accounts and insufficient
	// group scope.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidRange covers malformed time input, including an end
	// time strictly before the start time.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrBackendUnavailable covers store timeouts, cancellation, and
	// connection failures. Never used for legitimately empty results.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNotFound covers lookups of absent agents or users.
	ErrNotFound = errors.New("not found")

	// ErrInternal is the collapse bucket for unexpected failures at
	// the API boundary.
	ErrInternal = errors.New("internal error")
)
