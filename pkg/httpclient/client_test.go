package httpclient

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	client, err := New(cfg, discardLogger())

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if client == nil {
		t.Fatal("expected non-nil client")
	}

	if client.Timeout != cfg.Timeout {
		t.Errorf("expected timeout %v, got %v", cfg.Timeout, client.Timeout)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 0

	client, err := New(cfg, discardLogger())

	if err == nil {
		t.Fatal("expected error for invalid config")
	}

	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestNew_DoesNotRetry(t *testing.T) {
	client, err := New(DefaultConfig(), discardLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestNew_SetsUserAgent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserAgent = "test-client/2.0"

	client, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var receivedUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if receivedUserAgent != "test-client/2.0" {
		t.Errorf("expected User-Agent %q, got %q", "test-client/2.0", receivedUserAgent)
	}
}

func TestNew_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond

	client, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err = client.Get(server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "deadline") && !strings.Contains(errMsg, "timeout") && !strings.Contains(errMsg, "canceled") {
		t.Errorf("expected timeout/canceled error, got %v", err)
	}
}
