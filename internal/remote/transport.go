package remote

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"photosync-backend/internal/auth"
)

// Caller wraps every outbound remote call with the shared interceptors:
// one silent token refresh + single retry on an auth-expired response, and
// bounded exponential retry on transient failures. A rate limiter keeps each
// client inside the remote API's quota.
type Caller struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	name        string // for log prefixes: "Drive" or "Photos"
}

// RetryNotifier observes scheduled transient retries for the call's owner,
// e.g. to surface a "retrying" state on a tracked operation.
type RetryNotifier func(message string, attempt, maxAttempts int)

type retryNotifierKey struct{}

// WithRetryNotifier returns a context whose remote calls report every
// scheduled retry to fn.
func WithRetryNotifier(ctx context.Context, fn RetryNotifier) context.Context {
	return context.WithValue(ctx, retryNotifierKey{}, fn)
}

func notifyRetry(ctx context.Context, message string, attempt, maxAttempts int) {
	if fn, ok := ctx.Value(retryNotifierKey{}).(RetryNotifier); ok && fn != nil {
		fn(message, attempt, maxAttempts)
	}
}

// CallerOpts configures a Caller; zero values fall back to defaults.
type CallerOpts struct {
	HTTPClient  *http.Client
	RateLimit   float64
	MaxAttempts int
	BaseDelay   time.Duration
}

func NewCaller(name string, opts CallerOpts) *Caller {
	c := &Caller{
		httpClient:  opts.HTTPClient,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		name:        name,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.baseDelay <= 0 {
		c.baseDelay = 500 * time.Millisecond
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = 5.0
	}
	c.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	return c
}

// Do executes one logical remote call. build must return a fresh request each
// time it is invoked (request bodies are consumed on send). The returned
// response, if non-nil, has a 2xx status; the caller owns closing its body.
func (c *Caller) Do(ctx context.Context, sess *auth.Session, build func() (*http.Request, error)) (*http.Response, error) {
	refreshed := false
	delay := c.baseDelay

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken())

		resp, err := c.httpClient.Do(req.WithContext(ctx))
		if err != nil {
			// Network-level failure: transient
			if attempt >= c.maxAttempts {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
			log.Printf("[%s] Request failed (attempt %d/%d), retrying in %s: %v",
				c.name, attempt, c.maxAttempts, delay, err)
			notifyRetry(ctx, err.Error(), attempt, c.maxAttempts)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized:
			drain(resp)
			if refreshed {
				return nil, fmt.Errorf("%w: unauthorized after refresh", ErrAuthExpired)
			}
			refreshed = true
			log.Printf("[%s] Access token rejected, attempting silent refresh", c.name)
			if err := sess.Refresh(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
			}
			// Refresh does not consume a transient-retry attempt
			attempt--
			continue

		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			body := readBody(resp)
			return nil, fmt.Errorf("%w: %s %s: %s", ErrNotFoundOrGone, req.Method, req.URL.Path, body)

		case resp.StatusCode >= 500:
			body := readBody(resp)
			if attempt >= c.maxAttempts {
				return nil, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, body)
			}
			log.Printf("[%s] Status %d (attempt %d/%d), retrying in %s",
				c.name, resp.StatusCode, attempt, c.maxAttempts, delay)
			notifyRetry(ctx, fmt.Sprintf("status %d: %s", resp.StatusCode, body), attempt, c.maxAttempts)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			continue

		default:
			body := readBody(resp)
			return nil, fmt.Errorf("remote call failed: status %d: %s", resp.StatusCode, body)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return string(b)
}
