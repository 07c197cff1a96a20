package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/pkg/errors"
)

type requestState int

const (
	statePending requestState = iota
	stateSucceeded
	stateFailed
)

func (s requestState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("requestState(%d)", int(s))
	}
}

// Callback consumes a payload for a Request handler. It returns an error
// when the payload does not decode, which counts as the handler not having
// responded.
type Callback func(payload []byte) error

// On returns a Callback that JSON-decodes the payload as T and passes it to
// fn. fn only runs after a successful decode.
func On[T any](fn func(T)) Callback {
	return func(payload []byte) error {
		var decoded T
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return &errors.DecodeError{Type: TypeName[T](), Cause: err}
		}
		fn(decoded)
		return nil
	}
}

type registration struct {
	statusCode int
	callback   Callback
	notified   bool
}

// Request is one in-flight request with callback handlers. It moves from
// pending to succeeded or failed exactly once. Handlers and the fallback run
// on the request's serial queue, never concurrently with each other.
//
// Callbacks must not call Wait on their own Request.
type Request struct {
	queue  *serialQueue
	logger *slog.Logger
	done   chan struct{}

	// Owned by the queue.
	state         requestState
	outcome       Outcome
	handlers      []*registration
	fallback      func()
	claimed       bool
	fallbackFired bool
}

func newRequest(logger *slog.Logger) *Request {
	logger = log.OrDefault(logger)
	return &Request{
		queue:  newSerialQueue(logger),
		logger: logger,
		done:   make(chan struct{}),
		state:  statePending,
	}
}

// Start creates a Request and dispatches it immediately on its own
// goroutine. The outcome passes through the response interceptors like any
// other request.
func (m *Manager) Start(ctx context.Context, method, rawURL string, body any) *Request {
	r := newRequest(m.logger)
	go func() {
		out := m.Request(ctx, method, rawURL, body)
		r.queue.submit(func() { r.finish(out) })
	}()
	return r
}

// Handle registers a handler for statusCode. Registered while pending, it
// waits for the response. Registered after a successful response, it is
// served right away on the queue unless the fallback already fired.
// Registered after a failure or after the fallback fired, it is marked
// notified and never invoked.
func (r *Request) Handle(statusCode int, cb Callback) *Request {
	if cb == nil {
		return r
	}
	r.queue.submit(func() {
		reg := &registration{statusCode: statusCode, callback: cb}
		r.handlers = append(r.handlers, reg)

		switch {
		case r.state == statePending:
		case r.state == stateFailed, r.fallbackFired:
			reg.notified = true
		default:
			r.notify(reg)
		}
	})
	return r
}

// Fallback sets the callback that fires when no handler responded. Only one
// fallback is kept: a later call replaces an earlier one. Set after the
// request finished unclaimed, it fires at once unless a fallback already
// fired. Once a fallback has fired, the outcome is settled: handlers
// registered later are never invoked.
func (r *Request) Fallback(fn func()) *Request {
	if fn == nil {
		return r
	}
	r.queue.submit(func() {
		r.fallback = fn
		if r.state != statePending && !r.claimed {
			r.fireFallback()
		}
	})
	return r
}

// Done is closed once the response (or failure) has been processed.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request finished and every registration submitted
// before the call has been processed.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	barrier := make(chan struct{})
	r.queue.submit(func() { close(barrier) })

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome returns the outcome once Done is closed. ok is false while the
// request is pending.
func (r *Request) Outcome() (out Outcome, ok bool) {
	select {
	case <-r.done:
		return r.outcome, true
	default:
		return Outcome{}, false
	}
}

// finish performs the single state transition.
func (r *Request) finish(out Outcome) {
	if r.state != statePending {
		return
	}
	r.outcome = out

	if out.Failed() {
		r.state = stateFailed
		for _, h := range r.handlers {
			h.notified = true
		}
		r.fireFallback()
	} else {
		r.state = stateSucceeded
		for _, h := range r.handlers {
			r.notify(h)
		}
		if !r.claimed {
			r.fireFallback()
		}
	}

	r.logger.Debug("request finished",
		"state", r.state.String(),
		log.StatusKey, out.StatusCode,
		"handlers", len(r.handlers),
		"claimed", r.claimed,
	)
	close(r.done)
}

// notify offers the response to one handler. It reports whether the handler
// responded. A handler is offered the response at most once.
func (r *Request) notify(h *registration) bool {
	if h.notified {
		return false
	}
	h.notified = true

	if h.statusCode != r.outcome.StatusCode {
		return false
	}

	if err := r.call(h.callback); err != nil {
		r.logger.Warn("request handler did not respond",
			log.StatusKey, r.outcome.StatusCode,
			"payload", log.Preview(r.outcome.Payload, log.DefaultPreviewBytes),
			log.Error(err),
		)
		return false
	}
	r.claimed = true
	return true
}

func (r *Request) call(cb Callback) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return cb(r.outcome.Payload)
}

func (r *Request) fireFallback() {
	if r.fallback == nil || r.fallbackFired {
		return
	}
	r.fallbackFired = true

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("request fallback panicked", "panic", fmt.Sprint(p))
		}
	}()
	r.fallback()
}
