package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/pkg/telemetry"
)

// BreakerConfig trips the breaker after Failures consecutive errors and keeps
// it open for OpenFor.
type BreakerConfig struct {
	Failures int
	OpenFor  time.Duration
	Interval time.Duration
}

// NewBreaker builds a breaker that does not count ErrDataUnavailable as a failure.
func NewBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	fails := cfg.Failures
	if fails <= 0 {
		fails = 5
	}
	open := cfg.OpenFor
	if open <= 0 {
		open = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  open,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrDataUnavailable)
		},
	})
}

// statusError is a non-2xx answer from the upstream.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// upstream issues JSON POSTs to one service through a circuit breaker.
type upstream struct {
	name    string
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newUpstream(name, base string, timeout time.Duration, breaker *gobreaker.CircuitBreaker) *upstream {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if breaker == nil {
		breaker = NewBreaker(name, BreakerConfig{})
	}
	return &upstream{
		name:    name,
		base:    strings.TrimRight(strings.TrimSpace(base), "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// postJSON sends in to base+path and decodes a 2xx answer into out. mapStatus
// may turn a status code into a domain error; it runs inside the breaker.
func (u *upstream) postJSON(ctx context.Context, path string, in, out any, mapStatus func(int) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, u.name+" POST "+path, attribute.String("upstream.name", u.name))
	defer func() { telemetry.EndSpan(span, err) }()

	if u.base == "" {
		return &model.ExternalServiceError{Service: u.name, Err: errors.New("base url not configured")}
	}
	body, mErr := json.Marshal(in)
	if mErr != nil {
		return fmt.Errorf("%s: encode request: %w", u.name, mErr)
	}

	_, err = u.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := u.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request error: %w", err)
		}
		defer resp.Body.Close()

		if mapStatus != nil {
			if err := mapStatus(resp.StatusCode); err != nil {
				return nil, err
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return nil, nil
	})
	if err == nil || errors.Is(err, model.ErrDataUnavailable) {
		return err
	}
	return &model.ExternalServiceError{Service: u.name, Err: err}
}

// State exposes the breaker state for status reporting.
func (u *upstream) State() string {
	return u.breaker.State().String()
}
