package network

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedTransport blocks every round trip until release is closed.
func gatedTransport(release <-chan struct{}, status int, payload string) *recordingTransport {
	return &recordingTransport{
		respond: func(int, *Descriptor) (*Response, error) {
			<-release
			return &Response{StatusCode: status, Payload: []byte(payload)}, nil
		},
	}
}

func waitFor(t *testing.T, r *Request) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestRequestHandlersWaitForResponse(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, gatedTransport(release, http.StatusOK, `{"fact":"gated"}`))

	r := m.Start(context.Background(), http.MethodGet, "https://catfact.ninja/fact", nil)

	var facts []string
	fallbacks := 0
	r.Handle(http.StatusOK, On(func(f catFact) { facts = append(facts, f.Fact) })).
		Handle(http.StatusNotFound, On(func(catFact) { t.Error("404 handler must not run") })).
		Fallback(func() { fallbacks++ })

	_, done := r.Outcome()
	assert.False(t, done, "request must stay pending until the transport returns")

	close(release)
	waitFor(t, r)

	assert.Equal(t, []string{"gated"}, facts)
	assert.Zero(t, fallbacks)

	out, done := r.Outcome()
	require.True(t, done)
	assert.Equal(t, http.StatusOK, out.StatusCode)
}

func TestRequestFallbackWhenUnclaimed(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusNotFound, `{}`))

	fallbacks := 0
	r := m.Start(context.Background(), http.MethodGet, "https://catfact.ninja/fact", nil).
		Handle(http.StatusOK, On(func(catFact) { t.Error("200 handler must not run") })).
		Fallback(func() { fallbacks++ })

	waitFor(t, r)
	assert.Equal(t, 1, fallbacks)
}

func TestRequestFailureNeverInvokesHandlers(t *testing.T) {
	release := make(chan struct{})
	transport := &recordingTransport{
		respond: func(int, *Descriptor) (*Response, error) {
			<-release
			return nil, errors.New("offline")
		},
	}
	m := newTestManager(t, transport)

	r := m.Start(context.Background(), http.MethodGet, "https://catfact.ninja/fact", nil)

	fallbacks := 0
	r.Handle(0, On(func(catFact) { t.Error("handler ran on a failed request") })).
		Fallback(func() { fallbacks++ })

	close(release)
	waitFor(t, r)

	// A handler registered after the failure is dropped too.
	r.Handle(0, On(func(catFact) { t.Error("late handler ran on a failed request") }))
	waitFor(t, r)

	assert.Equal(t, 1, fallbacks)
	out, _ := r.Outcome()
	assert.True(t, out.Failed())
}

func TestRequestLateHandlerServedAfterSuccess(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusOK, `{"fact":"late"}`))

	r := m.Start(context.Background(), http.MethodGet, "https://catfact.ninja/fact", nil)
	waitFor(t, r)

	var got string
	r.Handle(http.StatusOK, On(func(f catFact) { got = f.Fact }))
	waitFor(t, r)

	assert.Equal(t, "late", got)
}

func TestRequestLateFallback(t *testing.T) {
	t.Run("fires when unclaimed", func(t *testing.T) {
		m := newTestManager(t, respondWith(http.StatusInternalServerError, `{}`))

		r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil)
		waitFor(t, r)

		fired := 0
		r.Fallback(func() { fired++ })
		waitFor(t, r)
		assert.Equal(t, 1, fired)
	})

	t.Run("does not fire when claimed", func(t *testing.T) {
		m := newTestManager(t, respondWith(http.StatusOK, `{"fact":"x"}`))

		r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
			Handle(http.StatusOK, On(func(catFact) {}))
		waitFor(t, r)

		r.Fallback(func() { t.Error("fallback fired after a handler responded") })
		waitFor(t, r)
	})

	t.Run("fires at most once", func(t *testing.T) {
		m := newTestManager(t, respondWith(http.StatusNotFound, `{}`))

		first, second := 0, 0
		r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
			Fallback(func() { first++ })
		waitFor(t, r)

		r.Fallback(func() { second++ })
		waitFor(t, r)

		assert.Equal(t, 1, first)
		assert.Zero(t, second)
	})
}

func TestRequestHandlerAfterLateFallbackNeverRuns(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusOK, `{"fact":"x"}`))

	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil)
	waitFor(t, r)

	hits, fired := 0, 0
	r.Fallback(func() { fired++ }).
		Handle(http.StatusOK, On(func(catFact) { hits++ }))
	waitFor(t, r)

	assert.Equal(t, 1, fired)
	assert.Zero(t, hits, "the fallback already settled the request")
}

func TestRequestHandlerAndFallbackAreExclusive(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusOK, `{"fact":"x"}`))

	for i := 0; i < 50; i++ {
		var (
			mu          sync.Mutex
			hits, fired int
			wg          sync.WaitGroup
		)
		r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil)
		for j := 0; j < 8; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Fallback(func() {
					mu.Lock()
					fired++
					mu.Unlock()
				})
			}()
			go func() {
				defer wg.Done()
				r.Handle(http.StatusOK, On(func(catFact) {
					mu.Lock()
					hits++
					mu.Unlock()
				}))
			}()
		}
		wg.Wait()
		waitFor(t, r)

		mu.Lock()
		if hits > 0 && fired > 0 {
			t.Fatalf("run %d: handlers ran %d times and the fallback fired %d times", i, hits, fired)
		}
		if fired > 1 {
			t.Fatalf("run %d: fallback fired %d times", i, fired)
		}
		mu.Unlock()
	}
}

func TestRequestFallbackLastWriteWins(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, gatedTransport(release, http.StatusNotFound, `{}`))

	var fired []string
	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
		Fallback(func() { fired = append(fired, "first") }).
		Fallback(func() { fired = append(fired, "second") })

	close(release)
	waitFor(t, r)

	assert.Equal(t, []string{"second"}, fired)
}

func TestRequestDecodeFailureFallsBack(t *testing.T) {
	buf := &syncBuffer{}
	m := newTestManager(t, respondWith(http.StatusOK, `["not","an","object"]`), WithLogger(newTestLogger(buf)))

	fallbacks := 0
	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
		Handle(http.StatusOK, On(func(catFact) { t.Error("handler ran despite decode failure") })).
		Fallback(func() { fallbacks++ })
	waitFor(t, r)

	assert.Equal(t, 1, fallbacks)
	assert.Contains(t, buf.String(), "request handler did not respond")
}

func TestRequestHandlerNotifiedOnce(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, gatedTransport(release, http.StatusOK, `{"fact":"once"}`))

	calls := 0
	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
		Handle(http.StatusOK, On(func(catFact) { calls++ }))

	close(release)
	waitFor(t, r)
	waitFor(t, r)

	assert.Equal(t, 1, calls)
}

func TestRequestPanickingHandlerIsContained(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusOK, `{"fact":"boom"}`))

	fallbacks := 0
	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil).
		Handle(http.StatusOK, On(func(catFact) { panic("handler exploded") })).
		Fallback(func() { fallbacks++ })
	waitFor(t, r)

	assert.Equal(t, 1, fallbacks, "a panicking handler counts as not responding")
}

func TestRequestWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestManager(t, gatedTransport(release, http.StatusOK, `{}`))

	r := m.Start(context.Background(), http.MethodGet, "https://example.com", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRequestStateString(t *testing.T) {
	assert.Equal(t, "pending", statePending.String())
	assert.Equal(t, "succeeded", stateSucceeded.String())
	assert.Equal(t, "failed", stateFailed.String())
	assert.Equal(t, "requestState(9)", requestState(9).String())
}
