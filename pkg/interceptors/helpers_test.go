package interceptors

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/tombee/fetchkit/pkg/network"
)

type scriptedTransport struct {
	mu      sync.Mutex
	calls   []*network.Descriptor
	respond func(call int, d *network.Descriptor) (*network.Response, error)
}

func (s *scriptedTransport) Do(_ context.Context, d *network.Descriptor) (*network.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, d.Clone())
	call := len(s.calls)
	s.mu.Unlock()
	return s.respond(call, d)
}

func (s *scriptedTransport) Calls() []*network.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*network.Descriptor(nil), s.calls...)
}

func statusSequence(codes ...int) *scriptedTransport {
	return &scriptedTransport{
		respond: func(call int, _ *network.Descriptor) (*network.Response, error) {
			code := codes[len(codes)-1]
			if call <= len(codes) {
				code = codes[call-1]
			}
			return &network.Response{StatusCode: code, Header: http.Header{}, Payload: []byte(`{}`)}, nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T, transport network.Transport, opts ...network.Option) *network.Manager {
	t.Helper()
	opts = append([]network.Option{network.WithLogger(discardLogger())}, opts...)
	m, err := network.NewManager(transport, opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func newDescriptor(t *testing.T, method, rawURL string) *network.Descriptor {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return &network.Descriptor{URL: u, Method: method, Header: http.Header{}}
}
