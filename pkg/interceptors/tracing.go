package interceptors

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/fetchkit/pkg/network"
)

// W3CPropagator returns a TextMapPropagator that implements W3C Trace Context.
func W3CPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Propagate returns a request interceptor that injects the trace context of
// ctx into the request headers. A nil propagator uses the global one.
func Propagate(p propagation.TextMapPropagator) network.RequestInterceptor {
	return network.RequestInterceptorFunc(func(ctx context.Context, d *network.Descriptor) (*network.Descriptor, error) {
		prop := p
		if prop == nil {
			prop = otel.GetTextMapPropagator()
		}
		prop.Inject(ctx, propagation.HeaderCarrier(d.Header))
		return d, nil
	})
}

// RecordOutcome returns a response interceptor that adds a "response" event
// to the span in ctx and marks the span as failed when no response arrived.
func RecordOutcome() network.ResponseInterceptor {
	return network.ResponseInterceptorFunc(func(ctx context.Context, _ network.Sender, d *network.Descriptor, out network.Outcome) network.Outcome {
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return out
		}

		attrs := []attribute.KeyValue{attribute.Int("http.response.status_code", out.StatusCode)}
		if d != nil {
			attrs = append(attrs,
				attribute.String("http.request.method", d.Method),
				attribute.String("url.full", d.URL.Redacted()),
			)
		}
		span.AddEvent("response", trace.WithAttributes(attrs...))

		if out.Failed() {
			err := out.Err
			if err == nil {
				err = network.ErrNoResponse
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return out
	})
}
