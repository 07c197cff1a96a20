package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/fetchkit/internal/log"
)

// RequestIDHeader is logged with each round trip when present.
const RequestIDHeader = "X-Request-ID"

// loggingTransport wraps an http.RoundTripper to add:
// - Request logging with sanitized URLs
// - User-Agent header injection
// - Duration tracking
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

// newLoggingTransport creates a new logging transport that wraps the base transport.
func newLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
		logger:    log.WithComponent(logger, "httpclient"),
	}
}

// RoundTrip implements http.RoundTripper.
// Logs all requests with method, URL (sanitized), status/error, and duration.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	attrs := []any{
		log.MethodKey, req.Method,
		log.URLKey, sanitizeURL(req.URL),
		log.DurationKey, duration,
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		attrs = append(attrs, "request_id", id)
	}

	if err != nil {
		t.logger.Warn("http request failed", append(attrs, log.Error(err))...)
		return resp, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	t.logger.Log(req.Context(), level, "http request", append(attrs, log.StatusKey, resp.StatusCode)...)

	return resp, nil
}
