package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited spaces calls to the wrapped provider to a fixed request rate
// shared by all workers.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

func NewRateLimited(inner Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return inner
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

func (r *RateLimited) Name() string {
	return r.inner.Name()
}

func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", &ProviderError{Provider: r.inner.Name(), Kind: classify(0, err), Err: err}
	}
	return r.inner.Complete(ctx, prompt)
}

func (r *RateLimited) Close() error {
	if closer, ok := r.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
