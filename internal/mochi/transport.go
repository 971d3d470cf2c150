package mochi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// retryTransport retries requests answered with 429, sleeping
// sleep*(attempt+1) between attempts. Other statuses pass through.
// timeout bounds each attempt on its own; backoff sleeps do not count.
type retryTransport struct {
	next    http.RoundTripper
	retries int
	sleep   time.Duration
	timeout time.Duration
	wait    func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := t.try(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.retries {
			return resp, nil
		}

		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		delay := t.sleep * time.Duration(attempt+1)
		t.logger.Warn("mochi: rate limited, retrying",
			slog.String("path", req.URL.Path), slog.Int("attempt", attempt+1), slog.Duration("delay", delay))
		if err := t.wait(req.Context(), delay); err != nil {
			return nil, err
		}

		if req.Body != nil {
			if req.GetBody == nil {
				return nil, fmt.Errorf("mochi: cannot replay request body for %s", req.URL.Path)
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
	}
}

// try sends one attempt under its own deadline. The deadline stays in force
// until the response body is closed.
func (t *retryTransport) try(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.next.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// limitTransport waits on a token bucket before each request.
type limitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("mochi: rate limiter: %w", err)
	}
	return t.next.RoundTrip(req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
