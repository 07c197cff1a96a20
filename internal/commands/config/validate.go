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


package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/internal/commands/completion"
	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/internal/config"
	"github.com/tombee/fetchkit/internal/tracing"
	fkerrors "github.com/tombee/fetchkit/pkg/errors"
	"github.com/tombee/fetchkit/pkg/storage"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	shared.JSONResponse
	Path     string   `json:"path,omitempty"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the configuration file and environment overrides.

Checks performed:
  - YAML syntax and field types
  - Value ranges for http, retry, storage, log and tracing settings
  - Auth settings are complete and not mixed
  - Files holding secrets are not readable by other users

With --strict, warnings are treated as errors.`,
		Example: `  fetchkit config validate
  fetchkit config validate --strict --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return outputValidationResult(cmd.OutOrStdout(), runValidate(), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate() ValidationResult {
	path := config.ResolvePath(shared.GetConfigPath())
	result := ValidationResult{Path: path}

	cfg, err := config.Load(path)
	if err != nil {
		result.Errors = validationErrors(err)
		return result
	}

	result.Valid = true
	result.Warnings = validationWarnings(cfg, path)
	return result
}

// validationErrors splits a validation failure into its problems.
func validationErrors(err error) []string {
	var cfgErr *fkerrors.ConfigError
	if errors.As(err, &cfgErr) && errors.Is(err, config.ErrInvalidConfig) {
		return strings.Split(cfgErr.Reason, "; ")
	}
	return []string{err.Error()}
}

func validationWarnings(cfg *config.Config, path string) []string {
	var warnings []string

	hasSecrets := cfg.Auth.Token != "" || cfg.Auth.ClientSecret != "" || cfg.Storage.MasterKey != ""
	if path != "" && hasSecrets && !completion.CheckFilePermissions(path) {
		warnings = append(warnings, fmt.Sprintf("%s holds secrets but is readable by other users; run chmod 600", path))
	}
	if cfg.Storage.Kind == string(storage.KindMemory) {
		warnings = append(warnings, "storage.kind is memory; values will not survive between commands")
	}
	if cfg.Storage.Kind == string(storage.KindKeychain) && !storage.NewKeychainEngine(cfg.Storage.KeychainService).Available() {
		warnings = append(warnings, "storage.kind is keychain but no keychain is available")
	}
	if cfg.Tracing.Exporter == string(tracing.ExporterOTLP) && cfg.Tracing.Insecure {
		warnings = append(warnings, "tracing.insecure sends spans without TLS")
	}
	if cfg.Retry.MaxAttempts == 1 {
		warnings = append(warnings, "retry.max_attempts is 1; failed requests are never retried")
	}
	return warnings
}

// outputValidationResult writes the result and maps it to an exit error.
func outputValidationResult(w io.Writer, result ValidationResult, strict bool) error {
	failStrict := strict && len(result.Warnings) > 0
	result.JSONResponse = shared.NewResponse("config validate", result.Valid && !failStrict)

	if shared.GetJSON() {
		if err := shared.EmitJSON(w, result); err != nil {
			return err
		}
	} else {
		if result.Valid {
			fmt.Fprintln(w, shared.RenderOK("Configuration is valid"))
		} else {
			fmt.Fprintln(w, shared.RenderError("Configuration validation failed"))
		}
		fmt.Fprintln(w)

		if len(result.Errors) > 0 {
			fmt.Fprintln(w, shared.RenderLabel("Errors:"))
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", shared.RenderError(e))
			}
			fmt.Fprintln(w)
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, shared.RenderLabel("Warnings:"))
			for _, warn := range result.Warnings {
				fmt.Fprintf(w, "  %s\n", shared.RenderWarn(warn))
			}
			fmt.Fprintln(w)
		}

		if result.Valid && len(result.Warnings) == 0 {
			fmt.Fprintln(w, "No issues found.")
		}
	}

	if !result.Valid {
		return shared.NewFailedError("configuration is invalid", nil)
	}
	if failStrict {
		return shared.NewFailedError("configuration has warnings (strict mode)", nil)
	}
	return nil
}
