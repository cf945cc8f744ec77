package cmsapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"travi_content/internal/adapters/observability"
	"travi_content/internal/domain"
)

// Client talks to the CMS admin API.
type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("API base URL: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

// Document returns a whole resource: a singleton object, a list or a collection.
func (c *Client) Document(ctx context.Context, resource string) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(resource), nil, &out)
}

// Record returns one collection record or dictionary entry.
func (c *Client) Record(ctx context.Context, resource, key string) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.do(ctx, http.MethodGet, itemPath(resource, key), nil, &out)
}

// Create appends body to a collection; the server assigns the id.
func (c *Client) Create(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.do(ctx, http.MethodPost, "/api/"+url.PathEscape(resource), body, &out)
}

// Update shallow-merges patch into a collection record.
func (c *Client) Update(ctx context.Context, resource, id string, patch any) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.do(ctx, http.MethodPut, itemPath(resource, id), patch, &out)
}

// Replace overwrites a singleton or list resource, or a dictionary entry when key is set.
func (c *Client) Replace(ctx context.Context, resource, key string, body any) (json.RawMessage, error) {
	path := "/api/" + url.PathEscape(resource)
	if key != "" {
		path = itemPath(resource, key)
	}
	var out json.RawMessage
	return out, c.do(ctx, http.MethodPut, path, body, &out)
}

func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(resource, id), nil, nil)
}

func itemPath(resource, key string) string {
	return "/api/" + url.PathEscape(resource) + "/" + url.PathEscape(key)
}

// ---- Internals ----

var (
	ErrBadRequest = errors.New("cmsapi: bad request")
	ErrTooLarge   = errors.New("cmsapi: payload too large")
)

// StatusError is a non-success reply the client does not map to a sentinel.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cmsapi: status %d", e.Status)
	}
	return fmt.Sprintf("cmsapi: status %d: %s", e.Status, e.Message)
}

// do sends a request and decodes the reply into out. Every attempt, retries included,
// takes a token from the client-side limiter. 429 is retried for every method; 5xx and
// network errors only for idempotent ones, since a POST may have been applied before the failure.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		payload = b
	}
	idempotent := method != http.MethodPost

	var lastErr error
	for i := 0; i < 4; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "travi-cmsctl/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("cms", method, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if idempotent && i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("cms", method, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			defer resp.Body.Close()
			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case resp.StatusCode == http.StatusBadRequest:
			msg := errorMessage(resp)
			return fmt.Errorf("%w: %s", ErrBadRequest, msg)

		case resp.StatusCode == http.StatusRequestEntityTooLarge:
			resp.Body.Close()
			return ErrTooLarge

		case resp.StatusCode == http.StatusTooManyRequests,
			idempotent && retryable(resp.StatusCode):
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &StatusError{Status: resp.StatusCode}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return &StatusError{Status: resp.StatusCode, Message: errorMessage(resp)}
		}
	}

	return lastErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// errorMessage reads the API's {"error": "..."} body, falling back to the raw text.
func errorMessage(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
