package network

import (
	"context"
)

// RequestInterceptor rewrites a descriptor before dispatch. It may return the
// same descriptor, a modified copy, or an error that aborts the request.
type RequestInterceptor interface {
	InterceptRequest(ctx context.Context, d *Descriptor) (*Descriptor, error)
}

// RequestInterceptorFunc adapts a function to RequestInterceptor.
type RequestInterceptorFunc func(ctx context.Context, d *Descriptor) (*Descriptor, error)

// InterceptRequest implements RequestInterceptor.
func (f RequestInterceptorFunc) InterceptRequest(ctx context.Context, d *Descriptor) (*Descriptor, error) {
	return f(ctx, d)
}

// Sender re-enters the dispatch pipeline: one transport round trip followed
// by the full response interceptor chain.
type Sender interface {
	Send(ctx context.Context, d *Descriptor) Outcome
}

// ResponseInterceptor inspects an outcome after dispatch and returns the
// outcome the next interceptor (or the caller) sees. d is nil when the
// request never got built.
type ResponseInterceptor interface {
	InterceptResponse(ctx context.Context, s Sender, d *Descriptor, out Outcome) Outcome
}

// ResponseInterceptorFunc adapts a function to ResponseInterceptor.
type ResponseInterceptorFunc func(ctx context.Context, s Sender, d *Descriptor, out Outcome) Outcome

// InterceptResponse implements ResponseInterceptor.
func (f ResponseInterceptorFunc) InterceptResponse(ctx context.Context, s Sender, d *Descriptor, out Outcome) Outcome {
	return f(ctx, s, d, out)
}

// Guard returns a response interceptor that passes outcomes through while
// allow returns true, and replaces them with a payload-less failure
// (ErrVetoed) otherwise. allow receives failed outcomes too.
func Guard(allow func(Outcome) bool) ResponseInterceptor {
	return ResponseInterceptorFunc(func(_ context.Context, _ Sender, _ *Descriptor, out Outcome) Outcome {
		if allow(out) {
			return out
		}
		return Failure(ErrVetoed, nil)
	})
}
