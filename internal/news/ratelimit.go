package news

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/newthinker/sigfuse/internal/core"
)

// NewLimiter allows one request per interval with no burst. A non-positive
// interval disables limiting.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// RateLimited spaces out calls to the wrapped provider
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimited wraps provider so at most one call starts per interval
func NewRateLimited(provider Provider, interval time.Duration) *RateLimited {
	return &RateLimited{provider: provider, limiter: NewLimiter(interval)}
}

func (r *RateLimited) Name() string {
	return r.provider.Name()
}

// Articles blocks until a token is available or ctx is cancelled
func (r *RateLimited) Articles(ctx context.Context, symbol string, hoursBack int) ([]core.NewsItem, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Articles(ctx, symbol, hoursBack)
}
