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
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tombee/fetchkit/internal/log"
)

// Kind names an engine type.
type Kind string

const (
	KindFile        Kind = "file"
	KindKeychain    Kind = "keychain"
	KindPreferences Kind = "preferences"
	KindMemory      Kind = "memory"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindFile, KindKeychain, KindPreferences, KindMemory}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown storage kind %q (want one of file, keychain, preferences, memory)", s)
}

// FactoryConfig configures the engines a Factory creates.
type FactoryConfig struct {
	// Dir holds file engine values and the preferences database.
	Dir string

	// MasterKey seals the file engine when set.
	MasterKey string

	// KeychainService names the keychain service.
	// Default: DefaultKeychainService
	KeychainService string

	// Logger is passed to values created through the factory.
	Logger *slog.Logger
}

// Factory creates engines by kind and reuses each one once created.
type Factory struct {
	cfg FactoryConfig

	mu      sync.Mutex
	engines map[Kind]Engine
}

// NewFactory creates a Factory.
func NewFactory(cfg FactoryConfig) *Factory {
	cfg.Logger = log.OrDefault(cfg.Logger)
	return &Factory{cfg: cfg, engines: make(map[Kind]Engine)}
}

// Engine returns the engine for kind, creating it on first use. A keychain
// that is unavailable is returned anyway; its operations report
// ErrUnavailable.
func (f *Factory) Engine(kind Kind) (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.engines[kind]; ok {
		return e, nil
	}

	var (
		e   Engine
		err error
	)
	switch kind {
	case KindMemory:
		e = NewMemoryEngine()
	case KindFile:
		var opts []FileOption
		if f.cfg.MasterKey != "" {
			opts = append(opts, WithMasterKey(f.cfg.MasterKey))
		}
		e, err = NewFileEngine(filepath.Join(f.cfg.Dir, "values"), opts...)
	case KindKeychain:
		kc := NewKeychainEngine(f.cfg.KeychainService)
		if !kc.Available() {
			log.WithComponent(f.cfg.Logger, "storage").Warn("keychain unavailable", log.EngineKey, kc.Name())
		}
		e = kc
	case KindPreferences:
		if err = ensureDir(f.cfg.Dir); err == nil {
			e, err = NewPreferencesEngine(filepath.Join(f.cfg.Dir, "preferences.db"))
		}
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s engine: %w", kind, err)
	}

	f.engines[kind] = e
	return e, nil
}

// Logger returns the logger values created through the factory should use.
func (f *Factory) Logger() *slog.Logger {
	return f.cfg.Logger
}

// Close releases engines that hold resources.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for kind, e := range f.engines {
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(f.engines, kind)
	}
	return firstErr
}

// Single returns a SingleValue for T backed by the factory's engine of kind.
func Single[T any](f *Factory, kind Kind) (*SingleValue[T], error) {
	e, err := f.Engine(kind)
	if err != nil {
		return nil, err
	}
	return NewSingleValue[T](e, WithLogger(f.Logger())), nil
}

// Multi returns a MultiValue for T backed by the factory's engine of kind.
func Multi[T any](f *Factory, kind Kind) (*MultiValue[T], error) {
	e, err := f.Engine(kind)
	if err != nil {
		return nil, err
	}
	return NewMultiValue[T](e, WithLogger(f.Logger())), nil
}
