package network

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/pkg/errors"
)

// Handler decodes a payload and maps it to R. A non-nil error means the
// payload did not decode; the clause then leaves the result unclaimed.
type Handler[R any] func(payload []byte) (R, error)

// Decode returns a Handler that JSON-decodes the payload as T and maps it
// with fn. fn only runs after a successful decode.
func Decode[T, R any](fn func(T) R) Handler[R] {
	return func(payload []byte) (R, error) {
		var decoded T
		if err := json.Unmarshal(payload, &decoded); err != nil {
			var zero R
			return zero, &errors.DecodeError{Type: TypeName[T](), Cause: err}
		}
		return fn(decoded), nil
	}
}

// As returns a Handler that decodes the payload as T and uses it unchanged.
func As[T any]() Handler[T] {
	return Decode(func(v T) T { return v })
}

// TypeName returns the Go type name used in decode diagnostics.
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Result wraps one Outcome and the value claimed by the first matching
// clause. A Result is owned by one goroutine; it is not safe for concurrent
// use.
type Result[R any] struct {
	outcome Outcome
	value   R
	claimed bool
	logger  *slog.Logger
}

// NewResult wraps an outcome. A nil logger uses slog.Default().
func NewResult[R any](out Outcome, logger *slog.Logger) *Result[R] {
	return &Result[R]{outcome: out, logger: log.OrDefault(logger)}
}

// Do builds and sends a request through m and wraps the outcome.
func Do[R any](ctx context.Context, m *Manager, method, rawURL string, body any) *Result[R] {
	return NewResult[R](m.Request(ctx, method, rawURL, body), m.logger)
}

// Get sends a GET request.
func Get[R any](ctx context.Context, m *Manager, rawURL string) *Result[R] {
	return Do[R](ctx, m, http.MethodGet, rawURL, nil)
}

// Post sends a POST request. A nil body sends no body.
func Post[R any](ctx context.Context, m *Manager, rawURL string, body any) *Result[R] {
	return Do[R](ctx, m, http.MethodPost, rawURL, body)
}

// Upload PUTs raw bytes and wraps the outcome.
func Upload[R any](ctx context.Context, m *Manager, rawURL string, data []byte) *Result[R] {
	return NewResult[R](m.Upload(ctx, rawURL, data), m.logger)
}

// Handle attaches a clause for statusCode. It is skipped when the outcome
// failed or carries a different status. Otherwise the handler runs; the
// first clause to decode successfully claims the result and later matching
// clauses still run but their values are discarded.
func (r *Result[R]) Handle(statusCode int, h Handler[R]) *Result[R] {
	if h == nil || !r.outcome.Matches(statusCode) {
		return r
	}

	value, err := h(r.outcome.Payload)
	if err != nil {
		r.logDecodeFailure(err)
		return r
	}
	r.claim(value)
	return r
}

// HandleCode attaches a clause that fires on status code equality alone.
func (r *Result[R]) HandleCode(statusCode int, produce func() R) *Result[R] {
	if produce == nil || !r.outcome.Matches(statusCode) {
		return r
	}
	r.claim(produce())
	return r
}

// Fallback returns the claimed value, or produce() when nothing claimed it.
func (r *Result[R]) Fallback(produce func() R) R {
	if r.claimed {
		return r.value
	}
	return produce()
}

// FallbackDetail is Fallback with access to the raw outcome.
func (r *Result[R]) FallbackDetail(produce func(FallbackData) R) R {
	if r.claimed {
		return r.value
	}
	return produce(r.outcome.fallbackData())
}

// Claimed reports whether a clause has claimed the result.
func (r *Result[R]) Claimed() bool {
	return r.claimed
}

// Outcome returns the wrapped outcome.
func (r *Result[R]) Outcome() Outcome {
	return r.outcome
}

func (r *Result[R]) claim(value R) {
	if r.claimed {
		return
	}
	r.value = value
	r.claimed = true
}

func (r *Result[R]) logDecodeFailure(err error) {
	attrs := []any{
		log.StatusKey, r.outcome.StatusCode,
		"payload", log.Preview(r.outcome.Payload, log.DefaultPreviewBytes),
		log.Error(err),
	}
	var decodeErr *errors.DecodeError
	if errors.As(err, &decodeErr) {
		attrs = append(attrs, "type", decodeErr.Type)
	}
	r.logger.Warn("unable to decode response payload", attrs...)
}
