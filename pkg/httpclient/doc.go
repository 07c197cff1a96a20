// Package httpclient provides the HTTP transport behind the network manager,
// with consistent timeout and logging behavior.
//
// The package creates HTTP clients with sensible, secure defaults including:
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - User-Agent header injection
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling for performance
//   - A cap on buffered response bodies
//
// # Usage
//
// Create a transport with default settings and hand it to a manager:
//
//	transport, err := httpclient.NewTransport(httpclient.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	manager, err := network.NewManager(transport)
//
// Customize configuration:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "my-service/2.0"
//	cfg.Timeout = 60 * time.Second
//	transport, err := httpclient.NewTransport(cfg, logger)
//
// # Security
//
// The package includes security features:
//   - Sensitive query parameters (api_key, token, password, etc.) are redacted from logs
//   - Authorization headers are never logged
//   - TLS 1.2 minimum with certificate validation enabled
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: successful requests (status < 400)
//   - Warn level: failed requests (4xx/5xx status, errors)
//   - Fields: method, url (sanitized), status, duration_ms, error, request_id
package httpclient
