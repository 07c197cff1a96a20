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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for fetchkit commands
const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitUsage   = 2
	// ExitUnhandled means a response arrived but no handler accepted it,
	// so the command printed its fallback.
	ExitUnhandled = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid flags or arguments
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: msg, Cause: cause}
}

// NewFailedError creates an error for commands that could not complete
func NewFailedError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitFailed, Message: msg, Cause: cause}
}

// NewUnhandledError creates an error for responses that fell back
func NewUnhandledError(msg string) *ExitError {
	return &ExitError{Code: ExitUnhandled, Message: msg}
}

// ExitCode returns the exit code err maps to.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailed
}

// PrintError writes err to w in the CLI's error format.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitUnhandled {
		// The fallback has already been printed.
		return
	}
	fmt.Fprintln(w, RenderError("Error: "+err.Error()))
}

// HandleExitError prints err and exits with the matching code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// FlagErrorFunc reports flag parse errors as usage errors.
func FlagErrorFunc(_ *cobra.Command, err error) error {
	return NewUsageError(err.Error(), nil)
}
