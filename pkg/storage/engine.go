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

// Package storage persists typed values through interchangeable engines.
//
// An Engine stores opaque bytes under string keys. SingleValue and
// MultiValue sit on top of an engine and handle JSON encoding and key
// derivation: a SingleValue[T] owns one slot per type, a MultiValue[T] one
// slot per type and identifier.
//
//	engine, err := storage.NewFileEngine(dir)
//	if err != nil {
//	    return err
//	}
//	facts := storage.NewMultiValue[Fact](engine)
//	if err := facts.Save(ctx, "latest", fact); err != nil {
//	    return err
//	}
//	fact, ok, err := facts.Restore(ctx, "latest")
//
// Restoring a value that was never saved, or whose stored bytes no longer
// decode as T, reports it as absent rather than as an error.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Engine.Load when no value is stored under a key.
	ErrNotFound = errors.New("value not found")

	// ErrUnavailable is returned when an engine cannot be used in the current
	// environment, such as a keychain without a running secret service.
	ErrUnavailable = errors.New("storage engine unavailable")
)

// Engine stores raw bytes under string keys.
type Engine interface {
	// Name returns the engine identifier (e.g., "file", "keychain").
	Name() string

	// Load returns the bytes stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Store writes value under key, replacing any previous value.
	Store(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Available returns true if this engine is usable in the current environment.
	Available() bool
}
