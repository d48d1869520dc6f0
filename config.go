package transcript

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/lifetrace/transcript/segmentstore"
)

// Config is the environment-driven construction path for hosts that
// configure through the process environment rather than code. Variables
// carry the LIFETRACE_ prefix, e.g. LIFETRACE_EXTRACTOR_URL.
type Config struct {
	// ExtractorURL is the base URL of the extraction service. Empty means
	// local-fallback-only mode.
	ExtractorURL string `envconfig:"EXTRACTOR_URL" default:""`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"20s"`
	Debounce    time.Duration `envconfig:"DEBOUNCE" default:"300ms"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`

	// StorePath, when set, opens the SQLite segment store at that path and
	// wires it into the service.
	StorePath string `envconfig:"STORE_PATH" default:""`
}

// FromEnv loads Config from LIFETRACE_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("lifetrace", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewFromEnv constructs a Service from the environment. Extra options are
// applied after the env-derived ones, so they win on conflict.
func NewFromEnv(extra ...Option) (*Service, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithHTTPTimeout(cfg.HTTPTimeout),
		WithDebounce(cfg.Debounce),
		WithMaxAttempts(cfg.MaxAttempts),
	}
	if cfg.StorePath != "" {
		store, err := segmentstore.Open(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSegmentStore(store))
	}
	opts = append(opts, extra...)

	return New(cfg.ExtractorURL, opts...), nil
}
