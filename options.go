package transcript

// Functional options configuring a Service during construction. Kept in a
// standalone file so all available knobs are discoverable at a glance.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifetrace/transcript/segmentstore"
)

// Option configures a Service in New. Options must be deterministic and
// side-effect free.
type Option func(*Service) error

// WithLogger sets the service logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) error {
		s.log = log
		return nil
	}
}

// WithDebounce sets the pause the worker takes before processing each
// dequeued segment. Larger values trade latency for fewer extraction calls
// when short segments arrive in bursts.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("debounce must be > 0")
		}
		s.debounce = d
		return nil
	}
}

// WithHTTPTimeout bounds one HTTP request to the extraction service.
// Expiry is treated like any other transport failure: the segment falls
// back to local marker parsing.
func WithHTTPTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		s.httpTimeout = d
		return nil
	}
}

// WithMaxAttempts sets how many times a recoverable remote failure is
// retried before the local fallback takes over.
func WithMaxAttempts(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return fmt.Errorf("max attempts must be > 0")
		}
		s.maxAttempts = n
		return nil
	}
}

// WithExtractor replaces the default HTTP extractor, e.g. with a test
// double. When set, the baseURL passed to New is ignored.
func WithExtractor(ex Extractor) Option {
	return func(s *Service) error {
		if ex == nil {
			return fmt.Errorf("extractor must not be nil")
		}
		s.extractor = ex
		return nil
	}
}

// WithSegmentStore lets the worker flip ContainsTodo/ContainsSchedule on
// stored segments once extraction finds entities. The service never writes
// anything else to the store.
func WithSegmentStore(store *segmentstore.Store) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}
