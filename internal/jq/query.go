// Package jq filters JSON response payloads with jq expressions.
package jq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest payload a query will decode (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// ErrInputTooLarge is returned for payloads above the configured limit.
var ErrInputTooLarge = errors.New("jq: input exceeds maximum size")

// Query is a compiled jq expression.
type Query struct {
	expr         string
	code         *gojq.Code
	timeout      time.Duration
	maxInputSize int
	raw          bool
}

// Option configures a Query.
type Option func(*Query)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(q *Query) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.maxInputSize = n
		}
	}
}

// WithRawStrings prints string results without JSON quoting, like jq -r.
func WithRawStrings() Option {
	return func(q *Query) {
		q.raw = true
	}
}

// Compile parses and compiles expr. An empty expression is the identity.
func Compile(expr string, opts ...Option) (*Query, error) {
	if strings.TrimSpace(expr) == "" {
		expr = "."
	}

	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}

	q := &Query{
		expr:         expr,
		code:         code,
		timeout:      DefaultTimeout,
		maxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// String returns the source expression.
func (q *Query) String() string {
	return q.expr
}

// Run decodes payload as JSON and returns every value the query emits.
func (q *Query) Run(ctx context.Context, payload []byte) ([]any, error) {
	if len(payload) > q.maxInputSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(payload), q.maxInputSize)
	}

	var input any
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, fmt.Errorf("payload is not JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var results []any
	iter := q.code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("jq execution timeout after %v: %w", q.timeout, ctx.Err())
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// Format runs the query and renders each result on its own line.
func (q *Query) Format(ctx context.Context, payload []byte) (string, error) {
	results, err := q.Run(ctx, payload)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for i, v := range results {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if s, ok := v.(string); ok && q.raw {
			buf.WriteString(s)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode jq result: %w", err)
		}
		buf.Write(b)
	}
	return buf.String(), nil
}
