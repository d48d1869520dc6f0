// Package remote is the HTTP client for the extraction service. Any
// non-2xx response or transport error surfaces as a classified error;
// recoverable failures are retried with exponential backoff inside the
// call budget before the caller switches to local fallback parsing.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	xerrors "github.com/lifetrace/transcript/internal/errors"
	"github.com/lifetrace/transcript/internal/types"
)

const (
	todosPath     = "/api/audio/extract-todos"
	schedulesPath = "/api/audio/extract-schedules"
)

// Config bounds the retry behaviour of one extraction call.
type Config struct {
	Timeout     time.Duration // total budget per HTTP request
	MaxAttempts int           // attempts per extraction call
	BaseBackoff time.Duration // initial retry interval
	MaxInterval time.Duration // retry interval cap
}

// Client talks to the extraction service.
type Client struct {
	http *resty.Client
	cfg  Config
	log  zerolog.Logger
}

// New constructs a Client for the service at baseURL.
func New(baseURL string, cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{http: c, cfg: cfg, log: log}
}

// ExtractTodos asks the service for todo entities in req.Text.
func (c *Client) ExtractTodos(ctx context.Context, req types.ExtractionRequest) ([]types.RawTodo, error) {
	var out types.TodoExtractionResponse
	if err := c.post(ctx, todosPath, req, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

// ExtractSchedules asks the service for schedule entities in req.Text.
func (c *Client) ExtractSchedules(ctx context.Context, req types.ExtractionRequest) ([]types.RawSchedule, error) {
	var out types.ScheduleExtractionResponse
	if err := c.post(ctx, schedulesPath, req, &out); err != nil {
		return nil, err
	}
	return out.Schedules, nil
}

// post performs one extraction call with the configured retry budget.
func (c *Client) post(ctx context.Context, path string, req types.ExtractionRequest, out any) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.cfg.MaxInterval
	exp.Reset()

	var err error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(exp.NextBackOff()):
			case <-ctx.Done():
				return xerrors.Transport(path, ctx.Err())
			}
			c.log.Debug().Str("endpoint", path).Int("attempt", attempt+1).Msg("retrying extraction call")
		}

		err = c.once(ctx, path, req, out)
		if err == nil || xerrors.IsIrrecoverable(err) {
			return err
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, path string, req types.ExtractionRequest, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		Post(path)
	if err != nil {
		return xerrors.Transport(path, err)
	}
	if !resp.IsSuccess() {
		return xerrors.FromStatus(path, resp.StatusCode(), fmt.Errorf("extraction service returned %s", resp.Status()))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return xerrors.Decode(path, err)
	}
	return nil
}
