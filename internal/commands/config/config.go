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


// Package config implements the config command group.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and check configuration",
		Long: `View and check fetchkit configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show the config file location
  validate - Check the configuration for errors`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(NewValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = runConfigShow

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after defaults and environment overrides.

Secrets (tokens, client secrets and the master key) are masked.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Long: `Display the path of the configuration file in use. When no file exists
yet, the default location is shown.`,
		Args: cobra.NoArgs,
		RunE: runConfigPath,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	masked := maskSensitiveConfig(cfg)

	if shared.GetJSON() {
		values, err := toMap(masked)
		if err != nil {
			return shared.NewFailedError("unable to encode configuration", err)
		}
		return shared.EmitJSON(cmd.OutOrStdout(), values)
	}

	out := cmd.OutOrStdout()
	source := config.ResolvePath(shared.GetConfigPath())
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Configuration:"), source)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)

	return writeYAML(out, masked)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path := config.ResolvePath(shared.GetConfigPath())
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return shared.NewFailedError("failed to determine config path", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// maskSensitiveConfig creates a copy of config with sensitive values masked
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Auth.Token = maskSecret(cfg.Auth.Token)
	masked.Auth.ClientSecret = maskSecret(cfg.Auth.ClientSecret)
	masked.Storage.MasterKey = maskSecret(cfg.Storage.MasterKey)

	if len(cfg.HTTP.Headers) > 0 {
		masked.HTTP.Headers = make(map[string]string, len(cfg.HTTP.Headers))
		for k, v := range cfg.HTTP.Headers {
			if strings.EqualFold(k, "Authorization") {
				v = maskSecret(v)
			}
			masked.HTTP.Headers[k] = v
		}
	}
	return &masked
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	// Environment variable references are not secrets themselves.
	if strings.HasPrefix(secret, "${") && strings.HasSuffix(secret, "}") {
		return secret
	}

	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

func writeYAML(w io.Writer, cfg *config.Config) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

// toMap round-trips cfg through YAML so JSON output uses the file's keys.
func toMap(cfg *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}
