// Package httpclient is the HTTP transport shared by the embedding and LLM
// adapters: request pacing with a token bucket and retries on throttling
// and transient server errors.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultRetryStatuses are the statuses worth retrying. 430 is sent by some
// hosted inference gateways in place of 429.
var DefaultRetryStatuses = []int{429, 430, 500, 502, 503, 504}

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables pacing
	MaxRetries        int
	Backoff           time.Duration // first retry delay, doubled each attempt
	RetryStatuses     []int
}

// Client wraps http.Client with pacing and retries.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	retryOn    map[int]bool
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	statuses := opts.RetryStatuses
	if statuses == nil {
		statuses = DefaultRetryStatuses
	}

	c := &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		retryOn:    make(map[int]bool, len(statuses)),
	}
	for _, s := range statuses {
		c.retryOn[s] = true
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Do sends req, retrying retryable statuses and transport errors up to
// MaxRetries times. The request body must be replayable (GetBody set), which
// holds for bodies built from bytes.Reader or strings.Reader.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			log.Debug().
				Str("url", req.URL.String()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying request")
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		r, err := replay(req)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if !c.retryOn[resp.StatusCode] {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxRetries+1, lastErr)
}

func replay(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		return r, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	r.Body = body
	return r, nil
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
