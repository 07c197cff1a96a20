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
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	fkerrors "github.com/tombee/fetchkit/pkg/errors"
)

// FileEngine stores each value in its own file under a directory. Writes
// are atomic (temp file plus rename) and files are created 0600.
//
// With a master key the engine runs sealed: values are encrypted with
// AES-256-GCM and cannot be read back with a different key.
type FileEngine struct {
	dir    string
	sealer *sealer
	mu     sync.RWMutex
}

// FileOption configures a FileEngine.
type FileOption func(*FileEngine) error

// WithMasterKey enables sealed mode.
func WithMasterKey(masterKey string) FileOption {
	return func(f *FileEngine) error {
		s, err := newSealer(masterKey)
		if err != nil {
			return err
		}
		f.sealer = s
		return nil
	}
}

// NewFileEngine creates a FileEngine rooted at dir, creating it 0700 if it
// does not exist.
func NewFileEngine(dir string, opts ...FileOption) (*FileEngine, error) {
	if dir == "" {
		return nil, &fkerrors.ValidationError{Field: "dir", Message: "storage directory is required"}
	}

	f := &FileEngine{dir: dir}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("configure file engine: %w", err)
		}
	}

	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the engine identifier.
func (f *FileEngine) Name() string {
	if f.sealer != nil {
		return "file+sealed"
	}
	return "file"
}

// Dir returns the directory values are stored in.
func (f *FileEngine) Dir() string {
	return f.dir
}

// Load reads the value stored under key.
func (f *FileEngine) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if f.sealer == nil {
		return data, nil
	}
	return f.sealer.open(data)
}

// Store writes value under key.
func (f *FileEngine) Store(_ context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	data := value
	if f.sealer != nil {
		if data, err = f.sealer.seal(value); err != nil {
			return fmt.Errorf("failed to seal value: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return writeFileAtomic(f.dir, path, data)
}

// Delete removes the file for key.
func (f *FileEngine) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Available reports whether the directory is still usable.
func (f *FileEngine) Available() bool {
	info, err := os.Stat(f.dir)
	return err == nil && info.IsDir()
}

// path maps a key to a file name inside dir. Keys are path-escaped so an
// identifier can never name a file outside the directory.
func (f *FileEngine) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." {
		return "", &fkerrors.ValidationError{Field: "key", Message: fmt.Sprintf("invalid storage key %q", key)}
	}
	ext := ".json"
	if f.sealer != nil {
		ext = ".enc"
	}
	return filepath.Join(f.dir, url.PathEscape(key)+ext), nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("storage path exists but is not a directory: %s", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
