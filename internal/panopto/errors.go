// SPDX-License-Identifier: MIT

package panopto

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnauthorized        = errors.New("panopto: missing or rejected credentials")
	ErrNotFound            = errors.New("panopto: resource not found")
	ErrUpstreamUnavailable = errors.New("panopto: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("panopto: server returned an error status")
	ErrBadResponse         = errors.New("panopto: invalid response format or malformed data")
	ErrTimeout             = errors.New("panopto: request timed out")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("panopto: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
