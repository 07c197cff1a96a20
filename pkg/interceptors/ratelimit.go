package interceptors

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tombee/fetchkit/pkg/network"
)

// RateLimit returns a request interceptor that waits for a token from
// limiter before each request is built. A cancelled context aborts the
// request.
func RateLimit(limiter *rate.Limiter) network.RequestInterceptor {
	return network.RequestInterceptorFunc(func(ctx context.Context, d *network.Descriptor) (*network.Descriptor, error) {
		if limiter == nil {
			return d, nil
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return d, nil
	})
}

// NewLimiter builds a limiter allowing perSecond requests with the given
// burst. perSecond <= 0 returns nil, which RateLimit treats as unlimited.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
