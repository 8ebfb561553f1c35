package websearch

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Searcher with a token-bucket limiter so a run never
// exceeds the API's allowed request rate. A single bucket suffices: the
// scheduler only talks to one endpoint.
type RateLimited struct {
	inner   Searcher
	limiter *rate.Limiter
}

// NewRateLimited builds the wrapper. A non-positive rps disables limiting.
func NewRateLimited(inner Searcher, rps float64, burst int) *RateLimited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Search waits for a token, honoring the context, then delegates.
func (r *RateLimited) Search(ctx context.Context, query string) ([]Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.inner.Search(ctx, query)
}
