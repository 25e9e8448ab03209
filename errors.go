package caderidflux

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the caderidflux package.
var (
	// ErrNoFields is returned when a query request carries no fields.
	ErrNoFields = errors.New("query request has no fields")

	// ErrInvalidTimeRange is returned when a request's end precedes its start.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidIdentifier is returned for names that cannot be embedded in
	// Flux text without corrupting it.
	ErrInvalidIdentifier = errors.New("invalid flux identifier")

	// ErrInvertedBounds is returned for a range filter whose minimum exceeds
	// its maximum.
	ErrInvertedBounds = errors.New("range filter bounds inverted")

	// ErrInvalidWindow is returned for malformed aggregate window settings.
	ErrInvalidWindow = errors.New("invalid aggregate window")

	// ErrNonFiniteValue is returned for NaN or infinite numeric parameters,
	// which have no rendering as Flux literals.
	ErrNonFiniteValue = errors.New("non-finite numeric value")

	// ErrUnexpectedSchema is returned when a query response is missing
	// columns the post-processing step depends on.
	ErrUnexpectedSchema = errors.New("unexpected result schema")

	// ErrInvalidPoint is returned when a point cannot be encoded as line
	// protocol.
	ErrInvalidPoint = errors.New("invalid point")
)

// FetchError wraps an executor or post-processing failure with enough
// context to reproduce it manually: the sub-window being fetched and the
// rendered query text.
type FetchError struct {
	Window SubWindow
	Query  string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for window [%s, %s): %v",
		toRFC3339(e.Window.Start), toRFC3339(e.Window.End), e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// HTTPError describes a non-2xx response from the query API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the response indicates a transient condition.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
