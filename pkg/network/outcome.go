package network

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrInvalidURL is returned by Build when the URL is not absolute.
	ErrInvalidURL = errors.New("invalid request URL")

	// ErrNoResponse marks a failure where the transport produced nothing usable.
	ErrNoResponse = errors.New("no response")

	// ErrVetoed marks an outcome rejected by a Guard interceptor.
	ErrVetoed = errors.New("response vetoed by interceptor")
)

// Response is what a Transport returns for one round trip.
type Response struct {
	// StatusCode is the HTTP status code. Zero means no status was obtainable.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Payload is the response body.
	Payload []byte
}

// Transport performs exactly one round trip for a prepared descriptor.
type Transport interface {
	Do(ctx context.Context, d *Descriptor) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, d *Descriptor) (*Response, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, d *Descriptor) (*Response, error) {
	return f(ctx, d)
}

// Outcome is the result of one dispatch attempt: either a Failure, or a
// Success carrying a status code and payload.
type Outcome struct {
	// StatusCode is set on success and zero on failure.
	StatusCode int

	// Header holds response headers on success.
	Header http.Header

	// Payload is the response body. A failure may retain a payload when the
	// transport returned bytes without a status code.
	Payload []byte

	// Err is set on failure.
	Err error
}

// Success builds a successful outcome.
func Success(statusCode int, header http.Header, payload []byte) Outcome {
	return Outcome{StatusCode: statusCode, Header: header, Payload: payload}
}

// Failure builds a failed outcome. A nil err is recorded as ErrNoResponse.
func Failure(err error, payload []byte) Outcome {
	if err == nil {
		err = ErrNoResponse
	}
	return Outcome{Err: err, Payload: payload}
}

// Failed reports whether no response was obtained.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.StatusCode <= 0
}

// Matches reports whether the outcome succeeded with the given status code.
func (o Outcome) Matches(statusCode int) bool {
	return !o.Failed() && o.StatusCode == statusCode
}

// FallbackData is the raw outcome handed to FallbackDetail producers.
type FallbackData struct {
	// StatusCode is zero when the request failed.
	StatusCode int
	Header     http.Header
	Payload    []byte
	Err        error
}

func (o Outcome) fallbackData() FallbackData {
	return FallbackData{
		StatusCode: o.StatusCode,
		Header:     o.Header,
		Payload:    o.Payload,
		Err:        o.Err,
	}
}
