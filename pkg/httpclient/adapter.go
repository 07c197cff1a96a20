package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tombee/fetchkit/pkg/network"
)

// ErrResponseTooLarge is returned when a response body exceeds the
// configured limit.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// Transport sends network descriptors with an *http.Client and buffers the
// response body.
type Transport struct {
	client           *http.Client
	maxResponseBytes int64
}

var _ network.Transport = (*Transport)(nil)

// NewTransport builds an HTTP client from cfg and wraps it as a
// network.Transport.
func NewTransport(cfg Config, logger *slog.Logger) (*Transport, error) {
	client, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return WrapClient(client, cfg.MaxResponseBytes), nil
}

// WrapClient adapts an existing client. maxResponseBytes <= 0 uses
// DefaultMaxResponseBytes.
func WrapClient(client *http.Client, maxResponseBytes int64) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}
	return &Transport{client: client, maxResponseBytes: maxResponseBytes}
}

// Do performs one round trip.
func (t *Transport) Do(ctx context.Context, d *network.Descriptor) (*network.Response, error) {
	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range d.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(payload)) > t.maxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, t.maxResponseBytes)
	}

	return &network.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Payload:    payload,
	}, nil
}
