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
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultKeychainService is the service name keychain entries are filed under.
const DefaultKeychainService = "fetchkit"

// KeychainEngine stores values in the system keychain.
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
//
// Values are base64 encoded since some keychains only accept text.
type KeychainEngine struct {
	service   string
	available bool
}

// NewKeychainEngine creates a keychain engine for service. It probes the
// keychain once so an unusable keychain is reported by Available instead
// of on first use.
func NewKeychainEngine(service string) *KeychainEngine {
	if service == "" {
		service = DefaultKeychainService
	}
	k := &KeychainEngine{service: service, available: true}

	_, err := keyring.Get(service, "__fetchkit_availability_test__")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		k.available = false
	}
	return k
}

// Name returns the engine identifier.
func (k *KeychainEngine) Name() string {
	return "keychain"
}

// Load retrieves the value stored under key.
func (k *KeychainEngine) Load(_ context.Context, key string) ([]byte, error) {
	if !k.available {
		return nil, fmt.Errorf("%w: keychain service unavailable", ErrUnavailable)
	}

	encoded, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, keychainError(err)
	}

	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keychain entry %s is not base64: %w", key, err)
	}
	return value, nil
}

// Store writes value under key, replacing any previous entry.
func (k *KeychainEngine) Store(_ context.Context, key string, value []byte) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrUnavailable)
	}

	if err := keyring.Set(k.service, key, base64.StdEncoding.EncodeToString(value)); err != nil {
		return keychainError(err)
	}
	return nil
}

// Delete removes key from the keychain.
func (k *KeychainEngine) Delete(_ context.Context, key string) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrUnavailable)
	}

	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return keychainError(err)
	}
	return nil
}

// Available returns true if the keychain service is accessible.
func (k *KeychainEngine) Available() bool {
	return k.available
}

func keychainError(err error) error {
	if isKeychainUnavailableError(err) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return fmt.Errorf("keychain error: %w", err)
}

// isKeychainUnavailableError checks if an error indicates the keychain is
// locked or inaccessible, across platforms.
func isKeychainUnavailableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"locked",
		"cannot access",
		"permission denied",
		"failed to unlock",
		"user interaction required",
		"secret service",
		"dbus",
		"user canceled",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
