package interceptors

import (
	"context"

	"github.com/google/uuid"

	"github.com/tombee/fetchkit/pkg/network"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID stores an identifier for RequestID to reuse.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the identifier stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestID returns a request interceptor that sets X-Request-ID. A header
// already on the descriptor is kept; otherwise the context identifier is
// used, and failing that a new UUID.
func RequestID() network.RequestInterceptor {
	return network.RequestInterceptorFunc(func(ctx context.Context, d *network.Descriptor) (*network.Descriptor, error) {
		if d.Header.Get(RequestIDHeader) != "" {
			return d, nil
		}
		id, ok := RequestIDFromContext(ctx)
		if !ok {
			id = uuid.NewString()
		}
		d.Header.Set(RequestIDHeader, id)
		return d, nil
	})
}
