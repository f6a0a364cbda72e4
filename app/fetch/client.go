// Package fetch provides the retrying HTTP client every scraping
// strategy goes through. Response classification follows the provider
// behavior observed in practice: 429 means cool down and try again,
// 404/403 are final for the URL, anything else transient gets a short
// delay before the next attempt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxRetries   = 3
	DefaultTimeout      = 30 * time.Second
	defaultRateCooldown = 30 * time.Second
	defaultNetRetryWait = 10 * time.Second
	defaultErrRetryWait = 5 * time.Second
)

// Logger is the task log sink fetch calls report to. The orchestrator's
// task state implements it; slog backs it outside of a task run.
type Logger interface {
	Logf(format string, args ...any)
}

type slogLogger struct{}

func (slogLogger) Logf(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}

// StatusError is the terminal failure for a URL: the server answered,
// and the answer means this item should be skipped, not retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Request describes one fetch. The zero value of optional fields is
// fine; Method defaults to GET and Timeout to DefaultTimeout.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Cookies map[string]string
	Form    url.Values
	Referer string
	Timeout time.Duration
}

type Response struct {
	StatusCode int
	Body       []byte
}

type Client struct {
	httpClient *http.Client
	userAgent  string

	MaxRetries   int
	RateCooldown time.Duration
	NetRetryWait time.Duration
	ErrRetryWait time.Duration

	// sleep is injectable for tests; it must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(userAgent string) *Client {
	return &Client{
		httpClient:   &http.Client{},
		userAgent:    userAgent,
		MaxRetries:   DefaultMaxRetries,
		RateCooldown: defaultRateCooldown,
		NetRetryWait: defaultNetRetryWait,
		ErrRetryWait: defaultErrRetryWait,
		sleep:        sleepCtx,
	}
}

// SetSleep replaces the inter-retry wait. Intended for tests.
func (c *Client) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

// Fetch performs the request with retry and classification. The returned
// error is terminal for the URL: callers skip the item and continue the
// batch, they never abort the whole task over it.
func (c *Client) Fetch(ctx context.Context, log Logger, r Request) (*Response, error) {
	if log == nil {
		log = slogLogger{}
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.MaxRetries {
				log.Logf("request failed after %d retries: %s", c.MaxRetries, r.URL)
				return nil, fmt.Errorf("request failed after %d retries: %w", c.MaxRetries, err)
			}
			log.Logf("network error fetching %s, retry %d/%d: %v", r.URL, attempt+1, c.MaxRetries, err)
			if err := c.sleep(ctx, c.NetRetryWait); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.MaxRetries {
				log.Logf("still rate limited after %d retries: %s", c.MaxRetries, r.URL)
				return nil, &StatusError{URL: r.URL, StatusCode: resp.StatusCode}
			}
			log.Logf("rate limited (429), waiting %s before retrying %s", c.RateCooldown, r.URL)
			if err := c.sleep(ctx, c.RateCooldown); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
			log.Logf("gone or inaccessible (HTTP %d): %s", resp.StatusCode, r.URL)
			return nil, &StatusError{URL: r.URL, StatusCode: resp.StatusCode}

		default:
			if attempt >= c.MaxRetries {
				log.Logf("unexpected HTTP %d after %d retries: %s", resp.StatusCode, c.MaxRetries, r.URL)
				return nil, &StatusError{URL: r.URL, StatusCode: resp.StatusCode}
			}
			log.Logf("unexpected HTTP %d, retrying %s", resp.StatusCode, r.URL)
			if err := c.sleep(ctx, c.ErrRetryWait); err != nil {
				return nil, err
			}
		}
	}
}

func (c *Client) do(ctx context.Context, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(r.Form) > 0 {
		body = strings.NewReader(r.Form.Encode())
	}

	req, err := http.NewRequestWithContext(reqCtx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if len(r.Form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range r.Cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// IsTerminalStatus reports whether err is a server answer that should
// not be retried for this URL.
func IsTerminalStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
