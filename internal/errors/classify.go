// Package errors classifies remote extraction failures so the worker can
// decide between retrying a call and switching to the local fallback.
package errors

import "fmt"

// Category determines how a remote failure is handled.
type Category int

const (
	// Recoverable failures are retried with backoff before the local
	// fallback takes over: 5xx, timeouts, transport errors, 408/429.
	Recoverable Category = iota

	// Irrecoverable failures skip the retry budget and go straight to the
	// fallback: 4xx client errors, malformed response bodies.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case Irrecoverable:
		return "irrecoverable"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ExtractionError wraps a remote extraction failure with its category.
type ExtractionError struct {
	Category   Category
	StatusCode int    // 0 for non-HTTP failures
	Endpoint   string // extraction endpoint path
	Underlying error
}

func (e *ExtractionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("extract %s: [%s] HTTP %d: %v", e.Endpoint, e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("extract %s: [%s] %v", e.Endpoint, e.Category, e.Underlying)
}

func (e *ExtractionError) Unwrap() error { return e.Underlying }

// IsIrrecoverable reports whether err should not be retried.
func IsIrrecoverable(err error) bool {
	if ee, ok := err.(*ExtractionError); ok {
		return ee.Category == Irrecoverable
	}
	return false
}

// FromStatus classifies an HTTP status code from the extraction service.
func FromStatus(endpoint string, status int, underlying error) *ExtractionError {
	return &ExtractionError{
		Category:   categoryFor(status),
		StatusCode: status,
		Endpoint:   endpoint,
		Underlying: underlying,
	}
}

// Transport wraps a network-level failure; always recoverable since it may
// be transient.
func Transport(endpoint string, underlying error) *ExtractionError {
	return &ExtractionError{Category: Recoverable, Endpoint: endpoint, Underlying: underlying}
}

// Decode wraps a malformed response body; retrying the same call would
// yield the same body, so it is irrecoverable.
func Decode(endpoint string, underlying error) *ExtractionError {
	return &ExtractionError{Category: Irrecoverable, Endpoint: endpoint, Underlying: underlying}
}

func categoryFor(status int) Category {
	switch {
	case status == 408 || status == 429:
		return Recoverable
	case status >= 400 && status < 500:
		return Irrecoverable
	default:
		return Recoverable
	}
}
