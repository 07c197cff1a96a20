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

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/tombee/fetchkit/internal/log"
	fkerrors "github.com/tombee/fetchkit/pkg/errors"
)

// KeyFor returns the storage key of the single slot for T.
func KeyFor[T any]() string {
	return reflect.TypeFor[T]().String()
}

// KeyForID returns the storage key of T's slot for id.
func KeyForID[T any](id string) string {
	return id + "_" + KeyFor[T]()
}

// ValueOption configures a SingleValue or MultiValue.
type ValueOption func(*valueConfig)

type valueConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report values that no longer decode.
func WithLogger(logger *slog.Logger) ValueOption {
	return func(c *valueConfig) {
		c.logger = logger
	}
}

func newValueConfig(engine Engine, opts []ValueOption) valueConfig {
	var cfg valueConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = log.WithComponent(cfg.logger, "storage").With(log.EngineKey, engineName(engine))
	return cfg
}

// SingleValue stores at most one T.
type SingleValue[T any] struct {
	engine Engine
	key    string
	logger *slog.Logger
}

// NewSingleValue binds T's single slot to engine.
func NewSingleValue[T any](engine Engine, opts ...ValueOption) *SingleValue[T] {
	cfg := newValueConfig(engine, opts)
	return &SingleValue[T]{engine: engine, key: KeyFor[T](), logger: cfg.logger}
}

// Save encodes item and stores it, replacing the previous value.
func (s *SingleValue[T]) Save(ctx context.Context, item T) error {
	return saveValue(ctx, s.engine, s.key, item)
}

// Restore returns the stored value. ok is false when nothing is stored or
// the stored bytes do not decode as T.
func (s *SingleValue[T]) Restore(ctx context.Context) (item T, ok bool, err error) {
	return restoreValue[T](ctx, s.engine, s.key, s.logger)
}

// Clear removes the stored value and returns what was there.
func (s *SingleValue[T]) Clear(ctx context.Context) (item T, ok bool, err error) {
	return clearValue[T](ctx, s.engine, s.key, s.logger)
}

// MultiValue stores one T per identifier.
type MultiValue[T any] struct {
	engine Engine
	logger *slog.Logger
}

// NewMultiValue binds T's identifier-keyed slots to engine.
func NewMultiValue[T any](engine Engine, opts ...ValueOption) *MultiValue[T] {
	cfg := newValueConfig(engine, opts)
	return &MultiValue[T]{engine: engine, logger: cfg.logger}
}

// Save encodes item and stores it under id.
func (m *MultiValue[T]) Save(ctx context.Context, id string, item T) error {
	key, err := idKey[T](id)
	if err != nil {
		return err
	}
	return saveValue(ctx, m.engine, key, item)
}

// Restore returns the value stored under id.
func (m *MultiValue[T]) Restore(ctx context.Context, id string) (item T, ok bool, err error) {
	key, err := idKey[T](id)
	if err != nil {
		return item, false, err
	}
	return restoreValue[T](ctx, m.engine, key, m.logger)
}

// Clear removes the value stored under id and returns it.
func (m *MultiValue[T]) Clear(ctx context.Context, id string) (item T, ok bool, err error) {
	key, err := idKey[T](id)
	if err != nil {
		return item, false, err
	}
	return clearValue[T](ctx, m.engine, key, m.logger)
}

func idKey[T any](id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &fkerrors.ValidationError{Field: "id", Message: "identifier must not be empty"}
	}
	return KeyForID[T](id), nil
}

func saveValue[T any](ctx context.Context, engine Engine, key string, item T) error {
	if engine == nil {
		return fmt.Errorf("%w: no engine configured", ErrUnavailable)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return &fkerrors.EncodeError{Type: KeyFor[T](), Cause: err}
	}
	if err := engine.Store(ctx, key, data); err != nil {
		return fmt.Errorf("store %s in %s: %w", key, engine.Name(), err)
	}
	return nil
}

func restoreValue[T any](ctx context.Context, engine Engine, key string, logger *slog.Logger) (T, bool, error) {
	var item T
	if engine == nil {
		return item, false, fmt.Errorf("%w: no engine configured", ErrUnavailable)
	}

	data, err := engine.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return item, false, nil
	}
	if err != nil {
		return item, false, fmt.Errorf("load %s from %s: %w", key, engine.Name(), err)
	}

	if err := json.Unmarshal(data, &item); err != nil {
		logger.Warn("stored value does not decode, treating as absent",
			"key", key,
			log.Error(&fkerrors.DecodeError{Type: KeyFor[T](), Cause: err}),
		)
		var zero T
		return zero, false, nil
	}
	return item, true, nil
}

func clearValue[T any](ctx context.Context, engine Engine, key string, logger *slog.Logger) (T, bool, error) {
	item, ok, err := restoreValue[T](ctx, engine, key, logger)
	if err != nil {
		return item, false, err
	}
	if err := engine.Delete(ctx, key); err != nil {
		return item, false, fmt.Errorf("delete %s from %s: %w", key, engine.Name(), err)
	}
	return item, ok, nil
}

func engineName(engine Engine) string {
	if engine == nil {
		return "none"
	}
	return engine.Name()
}
