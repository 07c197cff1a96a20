package httpclient

import (
	"fmt"
	"time"
)

// DefaultMaxResponseBytes caps how much of a response body is buffered.
const DefaultMaxResponseBytes int64 = 10 << 20

// Config configures the HTTP client used as the network transport.
type Config struct {
	// Timeout is the total request timeout.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// MaxResponseBytes is the largest response body the transport will buffer.
	// Default: 10MB. Must be > 0.
	MaxResponseBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		UserAgent:        "fetchkit/1.0",
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("max_response_bytes must be > 0, got %d", c.MaxResponseBytes)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
