package interceptors

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	fkerrors "github.com/tombee/fetchkit/pkg/errors"
	"github.com/tombee/fetchkit/pkg/network"
)

// RetryConfig bounds the Retry interceptor.
type RetryConfig struct {
	// MaxAttempts counts the initial try. Values below 2 disable retries.
	// Default: 3.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry.
	// Default: 100ms.
	BaseBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	// Default: 30s.
	MaxBackoff time.Duration

	// AllowNonIdempotent enables retries for POST, PUT, PATCH and DELETE.
	// Default: false.
	AllowNonIdempotent bool
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

type attemptKey struct{}

func attemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}

// Retry returns a response interceptor that re-sends transient failures:
// transport errors, 5xx, 408 and 429. The attempt count travels in the
// context, so the bound holds across the recursive sends. Retry-After is
// honored when it is shorter than the computed backoff.
func Retry(cfg RetryConfig) network.ResponseInterceptor {
	r := &retrier{cfg: cfg}
	return network.ResponseInterceptorFunc(r.intercept)
}

type retrier struct {
	cfg RetryConfig
}

func (r *retrier) intercept(ctx context.Context, s network.Sender, d *network.Descriptor, out network.Outcome) network.Outcome {
	if d == nil || !r.shouldRetry(out) {
		return out
	}
	if !isIdempotentMethod(d.Method) && !r.cfg.AllowNonIdempotent {
		return out
	}

	attempt := attemptFrom(ctx)
	if attempt >= r.cfg.MaxAttempts {
		return out
	}

	delay := calculateBackoff(r.cfg.BaseBackoff, r.cfg.MaxBackoff, attempt)
	if retryAfter := parseRetryAfter(out.Header); retryAfter > 0 && retryAfter < delay {
		delay = retryAfter
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return out
	}

	return s.Send(context.WithValue(ctx, attemptKey{}, attempt+1), d.Clone())
}

func (r *retrier) shouldRetry(out network.Outcome) bool {
	if out.Failed() {
		return isRetryableError(out.Err)
	}
	return shouldRetryStatus(out.StatusCode)
}

// isIdempotentMethod reports whether method is safe to repeat automatically.
func isIdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func shouldRetryStatus(statusCode int) bool {
	switch {
	case statusCode >= 500 && statusCode < 600:
		return true
	case statusCode == http.StatusRequestTimeout:
		return true
	case statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// isRetryableError determines if a failure should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, network.ErrVetoed) || errors.Is(err, network.ErrInvalidURL) {
		return false
	}

	var classifier fkerrors.ErrorClassifier
	if errors.As(err, &classifier) && !classifier.IsRetryable() {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	transientKeywords := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"temporary failure in name resolution",
		"eof",
	}
	for _, keyword := range transientKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}

// calculateBackoff computes the delay after the given attempt with
// exponential backoff and up to 20% jitter.
func calculateBackoff(base, max time.Duration, attempt int) time.Duration {
	backoff := float64(base) * math.Pow(2.0, float64(attempt-1))
	if max > 0 && backoff > float64(max) {
		backoff = float64(max)
	}

	jitter := rand.Float64() * backoff * 0.2
	return time.Duration(backoff + jitter)
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both seconds (integer) and HTTP-date formats.
// Returns 0 if header is missing or invalid.
func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(value); err == nil {
		if delay := time.Until(retryTime); delay > 0 {
			return delay
		}
	}

	return 0
}
