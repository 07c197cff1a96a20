package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/pkg/errors"
)

// Manager builds, dispatches and post-processes requests. Construct one per
// application and share it; it holds no per-request state.
type Manager struct {
	transport            Transport
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	logger               *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithRequestInterceptors appends request interceptors. They run in the
// order given, after any added earlier.
func WithRequestInterceptors(interceptors ...RequestInterceptor) Option {
	return func(m *Manager) {
		for _, ic := range interceptors {
			if ic != nil {
				m.requestInterceptors = append(m.requestInterceptors, ic)
			}
		}
	}
}

// WithResponseInterceptors appends response interceptors. They run in the
// order given, after any added earlier.
func WithResponseInterceptors(interceptors ...ResponseInterceptor) Option {
	return func(m *Manager) {
		for _, ic := range interceptors {
			if ic != nil {
				m.responseInterceptors = append(m.responseInterceptors, ic)
			}
		}
	}
}

// WithLogger sets the logger used for dispatch and decode diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager that dispatches through transport.
func NewManager(transport Transport, opts ...Option) (*Manager, error) {
	if transport == nil {
		return nil, &errors.ValidationError{Field: "transport", Message: "transport is required"}
	}

	m := &Manager{transport: transport}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = log.WithComponent(m.logger, "network")

	return m, nil
}

// Logger returns the manager's logger.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Build turns a URL, method and optional body into a descriptor and runs the
// request interceptors over it. A non-nil body is JSON encoded; an encoding
// failure returns *errors.EncodeError instead of sending a bodiless request.
func (m *Manager) Build(ctx context.Context, method, rawURL string, body any) (*Descriptor, error) {
	d, err := newDescriptor(method, rawURL)
	if err != nil {
		return nil, err
	}

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &errors.EncodeError{Type: fmt.Sprintf("%T", body), Cause: err}
		}
		d.Body = encoded
		d.Header.Set("Content-Type", "application/json")
	}

	return m.applyRequestInterceptors(ctx, d)
}

// BuildUpload prepares a PUT descriptor carrying raw bytes. The body is not
// JSON encoded; request interceptors still run.
func (m *Manager) BuildUpload(ctx context.Context, rawURL string, data []byte) (*Descriptor, error) {
	d, err := newDescriptor(http.MethodPut, rawURL)
	if err != nil {
		return nil, err
	}
	d.Body = data
	d.Header.Set("Content-Type", "application/octet-stream")

	return m.applyRequestInterceptors(ctx, d)
}

// Send dispatches a built descriptor and runs the response interceptors.
// A response interceptor that re-sends through its Sender re-enters here.
func (m *Manager) Send(ctx context.Context, d *Descriptor) Outcome {
	return m.interceptResponse(ctx, d, m.dispatch(ctx, d))
}

// Request builds and sends a request. A build failure becomes a Failure
// outcome that still passes through the response interceptors.
func (m *Manager) Request(ctx context.Context, method, rawURL string, body any) Outcome {
	d, err := m.Build(ctx, method, rawURL, body)
	if err != nil {
		m.logger.Warn("unable to build request",
			log.MethodKey, method,
			log.URLKey, redactURL(rawURL),
			log.Error(err),
		)
		return m.interceptResponse(ctx, nil, Failure(err, nil))
	}
	return m.Send(ctx, d)
}

// Upload PUTs raw bytes to rawURL. Upload outcomes skip the response
// interceptors.
func (m *Manager) Upload(ctx context.Context, rawURL string, data []byte) Outcome {
	d, err := m.BuildUpload(ctx, rawURL, data)
	if err != nil {
		m.logger.Warn("unable to build upload", log.URLKey, redactURL(rawURL), log.Error(err))
		return Failure(err, nil)
	}
	return m.dispatch(ctx, d)
}

func (m *Manager) applyRequestInterceptors(ctx context.Context, d *Descriptor) (*Descriptor, error) {
	for i, ic := range m.requestInterceptors {
		next, err := ic.InterceptRequest(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("request interceptor %d: %w", i, err)
		}
		if next == nil {
			return nil, fmt.Errorf("request interceptor %d returned no descriptor", i)
		}
		if next.Header == nil {
			next.Header = make(http.Header)
		}
		d = next
	}
	return d, nil
}

// dispatch performs exactly one transport round trip.
func (m *Manager) dispatch(ctx context.Context, d *Descriptor) Outcome {
	if d == nil || d.URL == nil {
		return Failure(ErrNoResponse, nil)
	}

	start := time.Now()
	resp, err := m.transport.Do(ctx, d)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		m.logger.Warn("request failed",
			log.MethodKey, d.Method,
			log.URLKey, d.URL.Redacted(),
			log.DurationKey, duration,
			log.Error(err),
		)
		return Failure(&errors.TransportError{Method: d.Method, URL: d.URL.Redacted(), Cause: err}, nil)
	}

	if resp == nil || resp.StatusCode <= 0 {
		var payload []byte
		if resp != nil {
			payload = resp.Payload
		}
		m.logger.Warn("response carried no status code",
			log.MethodKey, d.Method,
			log.URLKey, d.URL.Redacted(),
			log.DurationKey, duration,
		)
		return Failure(&errors.TransportError{Method: d.Method, URL: d.URL.Redacted(), Cause: ErrNoResponse}, payload)
	}

	m.logger.Debug("request completed",
		log.MethodKey, d.Method,
		log.URLKey, d.URL.Redacted(),
		log.StatusKey, resp.StatusCode,
		log.DurationKey, duration,
	)
	return Success(resp.StatusCode, resp.Header, resp.Payload)
}

// interceptResponse runs the response chain. Once an interceptor re-sends,
// the nested Send has already run the whole chain over the new outcome, so
// the remaining interceptors are skipped.
func (m *Manager) interceptResponse(ctx context.Context, d *Descriptor, out Outcome) Outcome {
	for _, ic := range m.responseInterceptors {
		s := &resendTracker{manager: m}
		out = ic.InterceptResponse(ctx, s, d, out)
		if s.sent.Load() {
			return out
		}
	}
	return out
}

// resendTracker is the Sender handed to one response interceptor.
type resendTracker struct {
	manager *Manager
	sent    atomic.Bool
}

func (s *resendTracker) Send(ctx context.Context, d *Descriptor) Outcome {
	s.sent.Store(true)
	return s.manager.Send(ctx, d)
}

func newDescriptor(method, rawURL string) (*Descriptor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidURL, redactURL(rawURL))
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	return &Descriptor{
		URL:    u,
		Method: method,
		Header: make(http.Header),
	}, nil
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
