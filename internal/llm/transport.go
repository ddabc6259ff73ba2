package llm

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type callInfoKey struct{}

// callInfo carries the last HTTP status seen during one completion call so the
// vendor error can be classified after the client library has wrapped it.
type callInfo struct {
	mu     sync.Mutex
	status int
}

func withCallInfo(ctx context.Context) (context.Context, *callInfo) {
	info := &callInfo{}
	return context.WithValue(ctx, callInfoKey{}, info), info
}

func (c *callInfo) set(status int) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *callInfo) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

type statusTransport struct {
	base          http.RoundTripper
	maxRetryAfter time.Duration
	now           func() time.Time
}

func newStatusTransport(base http.RoundTripper, maxRetryAfter time.Duration) *statusTransport {
	return &statusTransport{base: base, maxRetryAfter: maxRetryAfter, now: time.Now}
}

// RoundTrip records the response status and repeats a throttled request once
// when the server asks for a short enough Retry-After delay.
func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if wait, ok := t.retryAfter(resp); ok && (req.Body == nil || req.GetBody != nil) {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		ctx := req.Context()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		retry := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			retry.Body = body
		}
		resp, err = t.base.RoundTrip(retry)
		if err != nil {
			return nil, err
		}
	}

	if info, ok := req.Context().Value(callInfoKey{}).(*callInfo); ok {
		info.set(resp.StatusCode)
	}
	return resp, nil
}

func (t *statusTransport) retryAfter(resp *http.Response) (time.Duration, bool) {
	if t.maxRetryAfter <= 0 {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"), t.now())
	if !ok || wait > t.maxRetryAfter {
		return 0, false
	}
	return wait, true
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}
