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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64MB in KB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // AES-256

	saltSize     = 16
	gcmNonceSize = 12
)

// ErrWrongKey is returned when sealed data cannot be opened with the
// configured master key.
var ErrWrongKey = errors.New("decryption failed (wrong master key or corrupted data)")

// sealedValue is the on-disk form of one encrypted value.
type sealedValue struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// sealer encrypts values with AES-256-GCM under a key derived from the
// master key with Argon2id. Every value gets its own salt and nonce.
type sealer struct {
	masterKey []byte
}

func newSealer(masterKey string) (*sealer, error) {
	if masterKey == "" {
		return nil, errors.New("master key is empty")
	}
	return &sealer{masterKey: []byte(masterKey)}, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return json.Marshal(sealedValue{
		Salt:  salt,
		Nonce: nonce,
		Data:  gcm.Seal(nil, nonce, plaintext, nil),
	})
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	var v sealedValue
	if err := json.Unmarshal(sealed, &v); err != nil {
		return nil, fmt.Errorf("invalid sealed data format: %w", err)
	}
	if len(v.Nonce) != gcmNonceSize {
		return nil, fmt.Errorf("invalid sealed data format: nonce is %d bytes", len(v.Nonce))
	}

	gcm, err := s.gcm(v.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, v.Nonce, v.Data, nil)
	if err != nil {
		return nil, ErrWrongKey
	}
	return plaintext, nil
}

func (s *sealer) gcm(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.masterKey, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// zeroBytes securely zeros a byte slice.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
