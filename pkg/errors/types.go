// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
)

// ValidationError represents invalid caller input such as a malformed URL.
type ValidationError struct {
	// Field identifies which input failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a missing resource, e.g. a stored item or engine.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "engine", "item")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TransportError represents a round trip that produced no usable response.
type TransportError struct {
	// Method is the HTTP method of the failed request
	Method string

	// URL is the sanitized request URL
	URL string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("transport failed: %s %s", e.Method, e.URL)
	}
	return fmt.Sprintf("transport failed: %s %s: %v", e.Method, e.URL, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TransportError) ErrorType() string {
	return "transport"
}

// IsRetryable implements ErrorClassifier. A failed round trip is always
// worth another attempt from the library's point of view; callers decide.
func (e *TransportError) IsRetryable() bool {
	return true
}

// DecodeError represents a payload that did not decode as the expected type.
type DecodeError struct {
	// Type is the Go type the payload was decoded into
	Type string

	// StatusCode is the response status the payload arrived with (0 if unknown)
	StatusCode int

	// Cause is the underlying decoder error
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("unable to decode %s [HTTP %d]: %v", e.Type, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("unable to decode %s: %v", e.Type, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *DecodeError) ErrorType() string {
	return "decode"
}

// IsRetryable implements ErrorClassifier.
func (e *DecodeError) IsRetryable() bool {
	return false
}

// EncodeError represents a value that could not be serialized, e.g. a request
// body or an item being saved to storage.
type EncodeError struct {
	// Type is the Go type that failed to encode
	Type string

	// Cause is the underlying encoder error
	Cause error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("unable to encode %s: %v", e.Type, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "http.timeout")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
