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

package errors_test

import (
	"errors"
	"strings"
	"testing"

	fkerrors "github.com/tombee/fetchkit/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := fkerrors.Wrap(original, "additional context")

		if wrapped == nil {
			t.Fatal("Wrap should not return nil for non-nil error")
		}
		msg := wrapped.Error()
		if !strings.Contains(msg, "additional context") || !strings.Contains(msg, "original error") {
			t.Errorf("unexpected message: %s", msg)
		}
		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if wrapped := fkerrors.Wrap(nil, "context"); wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
	})
}

func TestWrapf(t *testing.T) {
	original := errors.New("disk full")
	wrapped := fkerrors.Wrapf(original, "saving %s", "item")

	if got := wrapped.Error(); got != "saving item: disk full" {
		t.Errorf("Wrapf() = %q", got)
	}
	if fkerrors.Wrapf(nil, "saving %s", "item") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestIsAndNew(t *testing.T) {
	sentinel := fkerrors.New("sentinel")
	wrapped := fkerrors.Wrap(sentinel, "outer")

	if !fkerrors.Is(wrapped, sentinel) {
		t.Error("Is should find sentinel")
	}
	if fkerrors.Is(wrapped, fkerrors.New("sentinel")) {
		t.Error("distinct errors with the same text must not match")
	}
}
