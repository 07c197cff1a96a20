// Package interceptors provides ready-made request and response
// interceptors for network.Manager.
//
// Request interceptors run in registration order before dispatch:
//
//	manager, err := network.NewManager(transport,
//	    network.WithRequestInterceptors(
//	        interceptors.RequestID(),
//	        interceptors.Propagate(nil),
//	        interceptors.RateLimit(rate.NewLimiter(5, 5)),
//	        bearer,
//	    ),
//	    network.WithResponseInterceptors(
//	        metrics,
//	        interceptors.RecordOutcome(),
//	        bearer,
//	        interceptors.Retry(interceptors.DefaultRetryConfig()),
//	    ),
//	)
//
// Interceptors that re-send (Bearer, Retry) do so through the manager, so
// every interceptor registered after them sees each attempt. Register
// observers such as Metrics before them to count each outcome once.
package interceptors
