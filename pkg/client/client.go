// Package client calls the genre analysis service over HTTP or gRPC.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/auth"
	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"

	"github.com/codeGROOVE-dev/retry"
)

// Retry constants.
const (
	DefaultRetryAttempts = 5
	initialRetryDelay    = 500 * time.Millisecond // Initial delay for retry attempts
	maxRetryDelay        = 30 * time.Second       // Maximum delay cap
	analyzePath          = "/genre_analysis"
	tokenSubject         = "genre-client"
)

// HTTPDoer provides an interface for making HTTP requests.
// This allows us to mock HTTP calls in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for creating a new Client.
type Config struct {
	HTTPClient    HTTPDoer // Optional; defaults to an http.Client with HTTPTimeout
	BaseURL       string   // e.g. http://localhost:5005
	JWTSecret     []byte   // Shared secret for bearer auth (empty = no auth header)
	HTTPTimeout   time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Client sends records to the HTTP analysis endpoint.
type Client struct {
	httpClient HTTPDoer
	auth       *auth.Authenticator
	url        string
	attempts   uint
	delay      time.Duration
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// transportError marks a request that failed before any response arrived.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.err)
}

func (e *transportError) Unwrap() error {
	return e.err
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// New creates a new HTTP client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("base URL must start with http:// or https://: %q", cfg.BaseURL)
	}

	c := &Client{
		httpClient: cfg.HTTPClient,
		url:        strings.TrimSuffix(cfg.BaseURL, "/") + analyzePath,
		attempts:   cfg.RetryAttempts,
		delay:      cfg.RetryDelay,
	}
	if c.httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.attempts == 0 {
		c.attempts = DefaultRetryAttempts
	}
	if c.delay <= 0 {
		c.delay = initialRetryDelay
	}
	if len(cfg.JWTSecret) > 0 {
		a, err := auth.New(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		c.auth = a
	}

	return c, nil
}

// drainAndCloseBody drains and closes an HTTP response body to prevent resource leaks.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}

// Analyze posts records to the service and returns its analysis.
func (c *Client) Analyze(ctx context.Context, records []types.Record) (*types.AnalysisResult, error) {
	if records == nil {
		records = []types.Record{}
	}
	payload, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var result *types.AnalysisResult
	err = c.retryWithBackoff(ctx, "POST "+c.url, func() error {
		r, err := c.post(ctx, payload)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// post performs a single request attempt.
func (c *Client) post(ctx context.Context, payload []byte) (*types.AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		token, err := c.auth.Token(tokenSubject)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	slog.Debug("HTTP request", "component", "http", "method", req.Method, "url", c.url, "bytes", len(payload))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			msg = body.Error
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	var result types.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	slog.Debug("HTTP response", "component", "http", "status", resp.StatusCode, "genres", len(result.GenreCounts))
	return &result, nil
}

// retryWithBackoff executes fn with exponential backoff and jitter.
// Only transport failures, 429 and 5xx are retried.
func (c *Client) retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.delay/4),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "retry", "operation", operation, "attempt", n+1, "max_attempts", c.attempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			var te *transportError
			return errors.As(err, &te) && ctx.Err() == nil
		}),
	)
}
