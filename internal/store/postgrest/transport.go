package postgrest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// TransportConfig configures the rate-limited HTTP transport.
type TransportConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of retries on 429 and 5xx responses.
	// Zero disables retries.
	MaxRetries int

	// RetryDelay is the delay between retries when the server sends no
	// Retry-After header.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// transport wraps http.Client with rate limiting and optional retries.
// It is safe for concurrent use.
type transport struct {
	client  *http.Client
	limiter *rate.Limiter
	config  TransportConfig
}

func newTransport(cfg TransportConfig) *transport {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 20
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-ResearchAnalytics/1.0"
	}

	return &transport{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		config:  cfg,
	}
}

// do executes req, waiting for the limiter before every attempt. Requests
// carry no body, so they can be resent as is.
func (t *transport) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < t.config.MaxRetries {
				if err := wait(req.Context(), t.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !retryable(resp.StatusCode) || attempt == t.config.MaxRetries {
			return resp, nil
		}

		delay := t.retryDelay(resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err := wait(req.Context(), delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func retryable(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// retryDelay honours Retry-After in seconds or as an HTTP date.
func (t *transport) retryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return t.config.RetryDelay
	}
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return t.config.RetryDelay
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(at); delay > 0 {
			return delay
		}
	}
	return t.config.RetryDelay
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
