package network

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
)

type catFact struct {
	Fact   string `json:"fact"`
	Length int    `json:"length"`
}

// recordingTransport returns canned responses and records every descriptor
// it was asked to send.
type recordingTransport struct {
	mu      sync.Mutex
	calls   []*Descriptor
	respond func(call int, d *Descriptor) (*Response, error)
}

func (t *recordingTransport) Do(_ context.Context, d *Descriptor) (*Response, error) {
	t.mu.Lock()
	t.calls = append(t.calls, d.Clone())
	call := len(t.calls)
	t.mu.Unlock()
	return t.respond(call, d)
}

func (t *recordingTransport) Calls() []*Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Descriptor(nil), t.calls...)
}

func respondWith(status int, payload string) *recordingTransport {
	return &recordingTransport{
		respond: func(int, *Descriptor) (*Response, error) {
			return &Response{StatusCode: status, Header: http.Header{}, Payload: []byte(payload)}, nil
		},
	}
}

func failWith(err error) *recordingTransport {
	return &recordingTransport{
		respond: func(int, *Descriptor) (*Response, error) {
			return nil, err
		},
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestManager(t *testing.T, transport Transport, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(newTestLogger(io.Discard))}, opts...)
	m, err := NewManager(transport, opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}
