// Package network is a small request/response pipeline built around
// status-code scoped handlers, interceptors and mandatory fallbacks.
//
// A Manager owns a Transport and two ordered interceptor lists. Every request
// goes through the same stages:
//
//	Build (URL parse, JSON body, request interceptors)
//	  -> Transport.Do (exactly one round trip)
//	  -> response interceptors (may replace the outcome or re-send)
//	  -> Result[R] or Request handlers
//
// # Result
//
// Result is the synchronous form. Clauses are attached in order and the first
// one whose status code matches and whose payload decodes claims the value.
// A fallback terminates the chain, so every request resolves to exactly one R:
//
//	text := network.Get[string](ctx, manager, "https://catfact.ninja/fact").
//	    Handle(200, network.Decode(func(f Fact) string { return f.Fact })).
//	    Fallback(func() string { return "Unknown error" })
//
// Transport failures, unmatched status codes and decode failures never
// surface as errors from the chain. Decode failures are logged.
//
// # Request
//
// Request is the callback form. The dispatch starts when the Request is
// created; handlers and the fallback can be registered before or after the
// response arrives. All state changes go through a per-request serial queue,
// so each handler fires at most once and the fallback fires exactly once
// when nothing claimed the response.
//
//	manager.Start(ctx, http.MethodGet, url, nil).
//	    Handle(200, network.On(func(f Fact) { show(f.Fact) })).
//	    Fallback(func() { show("Unknown error") })
//
// # Interceptors
//
// Request interceptors rewrite the Descriptor before dispatch. Response
// interceptors see the Outcome afterwards and may re-send through the
// Sender they are given. The Sender re-runs the full response chain, and the
// outcome it returns is final: interceptors after the one that re-sent do
// not run again in the outer chain. An interceptor that re-sends
// unconditionally never terminates; bounding retries is the interceptor's
// job (see the interceptors package).
package network
