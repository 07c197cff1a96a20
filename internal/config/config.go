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

// Package config loads the fetchkit CLI configuration from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/internal/tracing"
	fkerrors "github.com/tombee/fetchkit/pkg/errors"
	"github.com/tombee/fetchkit/pkg/httpclient"
	"github.com/tombee/fetchkit/pkg/interceptors"
	"github.com/tombee/fetchkit/pkg/storage"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete fetchkit configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Retry   RetryConfig   `yaml:"retry"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// HTTPConfig configures the transport and the request interceptors.
type HTTPConfig struct {
	// Timeout is the total request timeout.
	// Environment: FETCHKIT_TIMEOUT
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with every request.
	// Environment: FETCHKIT_USER_AGENT
	// Default: fetchkit/1.0
	UserAgent string `yaml:"user_agent"`

	// MaxResponseBytes caps buffered response bodies.
	// Default: 10MB
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// RateLimit is the sustained request rate per second. 0 disables limiting.
	// Environment: FETCHKIT_RATE_LIMIT
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	// RateBurst is the largest burst allowed by the rate limiter.
	// Default: 1
	RateBurst int `yaml:"rate_burst,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RetryConfig configures the retry interceptor.
type RetryConfig struct {
	// MaxAttempts includes the first attempt. 1 disables retries.
	// Environment: FETCHKIT_MAX_ATTEMPTS
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseBackoff is the first backoff delay.
	// Default: 100ms
	BaseBackoff time.Duration `yaml:"base_backoff"`

	// MaxBackoff caps the delay between attempts.
	// Default: 30s
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// AuthConfig configures bearer authentication. Token and client
// credentials are mutually exclusive.
type AuthConfig struct {
	// Token is a static bearer token.
	// Environment: FETCHKIT_TOKEN
	Token string `yaml:"token,omitempty"`

	// ClientID, ClientSecret and TokenURL enable the OAuth2 client
	// credentials flow.
	// Environment: FETCHKIT_CLIENT_ID, FETCHKIT_CLIENT_SECRET, FETCHKIT_TOKEN_URL
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// Enabled reports whether any bearer authentication is configured.
func (a AuthConfig) Enabled() bool {
	return a.Token != "" || a.ClientID != ""
}

// StorageConfig configures persistent storage.
type StorageConfig struct {
	// Dir holds file values and the preferences database.
	// Environment: FETCHKIT_STORAGE_DIR
	// Default: $XDG_DATA_HOME/fetchkit
	Dir string `yaml:"dir"`

	// Kind is the engine used when a command does not pick one.
	// Environment: FETCHKIT_STORAGE_KIND
	// Default: preferences
	Kind string `yaml:"kind"`

	// MasterKey seals the file engine.
	// Environment: FETCHKIT_MASTER_KEY
	MasterKey string `yaml:"master_key,omitempty"`

	// KeychainService names the keychain service entries are stored under.
	// Default: fetchkit
	KeychainService string `yaml:"keychain_service,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: FETCHKIT_LOG_LEVEL, LOG_LEVEL
	// Default: warn
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is none, console or otlp.
	// Environment: FETCHKIT_TRACE_EXPORTER
	// Default: none
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP/HTTP collector host:port.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure,omitempty"`

	// SampleRate is the fraction of commands traced.
	// Default: 1.0
	SampleRate float64 `yaml:"sample_rate"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hc := httpclient.DefaultConfig()
	rc := interceptors.DefaultRetryConfig()
	tc := tracing.DefaultConfig()

	return &Config{
		HTTP: HTTPConfig{
			Timeout:          hc.Timeout,
			UserAgent:        hc.UserAgent,
			MaxResponseBytes: hc.MaxResponseBytes,
			RateBurst:        1,
		},
		Retry: RetryConfig{
			MaxAttempts: rc.MaxAttempts,
			BaseBackoff: rc.BaseBackoff,
			MaxBackoff:  rc.MaxBackoff,
		},
		Storage: StorageConfig{
			Dir:             DataDir(),
			Kind:            string(storage.KindPreferences),
			KeychainService: storage.DefaultKeychainService,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: string(log.FormatText),
		},
		Tracing: TracingConfig{
			Exporter:   string(tc.Exporter),
			SampleRate: tc.SampleRate,
		},
	}
}

// Load loads configuration from an optional YAML file and then from
// environment variables. Environment variables take precedence.
// If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &fkerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Minimal files leave zero values behind.
	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := Default()

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = d.HTTP.UserAgent
	}
	if c.HTTP.MaxResponseBytes == 0 {
		c.HTTP.MaxResponseBytes = d.HTTP.MaxResponseBytes
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = d.HTTP.RateBurst
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.BaseBackoff == 0 {
		c.Retry.BaseBackoff = d.Retry.BaseBackoff
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = d.Retry.MaxBackoff
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = d.Storage.Kind
	}
	if c.Storage.KeychainService == "" {
		c.Storage.KeychainService = d.Storage.KeychainService
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = d.Tracing.Exporter
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = d.Tracing.SampleRate
	}
}

// loadFromEnv loads configuration from environment variables. Values that
// do not parse are left for Validate to report.
func (c *Config) loadFromEnv() {
	// HTTP configuration
	if val := os.Getenv("FETCHKIT_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.HTTP.Timeout = duration
		} else {
			c.HTTP.Timeout = -1
		}
	}
	if val := os.Getenv("FETCHKIT_USER_AGENT"); val != "" {
		c.HTTP.UserAgent = val
	}
	if val := os.Getenv("FETCHKIT_RATE_LIMIT"); val != "" {
		if limit, err := strconv.ParseFloat(val, 64); err == nil {
			c.HTTP.RateLimit = limit
		} else {
			c.HTTP.RateLimit = -1
		}
	}
	if val := os.Getenv("FETCHKIT_MAX_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			c.Retry.MaxAttempts = attempts
		} else {
			c.Retry.MaxAttempts = -1
		}
	}

	// Auth configuration
	if val := os.Getenv("FETCHKIT_TOKEN"); val != "" {
		c.Auth.Token = val
	}
	if val := os.Getenv("FETCHKIT_CLIENT_ID"); val != "" {
		c.Auth.ClientID = val
	}
	if val := os.Getenv("FETCHKIT_CLIENT_SECRET"); val != "" {
		c.Auth.ClientSecret = val
	}
	if val := os.Getenv("FETCHKIT_TOKEN_URL"); val != "" {
		c.Auth.TokenURL = val
	}

	// Storage configuration
	if val := os.Getenv("FETCHKIT_STORAGE_DIR"); val != "" {
		c.Storage.Dir = val
	}
	if val := os.Getenv("FETCHKIT_STORAGE_KIND"); val != "" {
		c.Storage.Kind = strings.ToLower(val)
	}
	if val := os.Getenv("FETCHKIT_MASTER_KEY"); val != "" {
		c.Storage.MasterKey = val
	}

	// Log configuration
	if val := os.Getenv("FETCHKIT_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
	// Tracing configuration
	if val := os.Getenv("FETCHKIT_TRACE_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}

	if val := os.Getenv("FETCHKIT_DEBUG"); val == "1" || val == "true" {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}
}

// Validate checks that the configuration is valid. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []string

	hc := c.HTTPClientConfig()
	if err := hc.Validate(); err != nil {
		errs = append(errs, "http."+err.Error())
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("http.rate_limit must be >= 0, got %v", c.HTTP.RateLimit))
	}
	if c.HTTP.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("http.rate_burst must be >= 1, got %d", c.HTTP.RateBurst))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.BaseBackoff {
		errs = append(errs, fmt.Sprintf("retry backoff must satisfy 0 < base_backoff <= max_backoff, got %v and %v",
			c.Retry.BaseBackoff, c.Retry.MaxBackoff))
	}

	if c.Auth.Token != "" && c.Auth.ClientID != "" {
		errs = append(errs, "auth.token and auth.client_id are mutually exclusive")
	}
	if c.Auth.ClientID != "" && (c.Auth.ClientSecret == "" || c.Auth.TokenURL == "") {
		errs = append(errs, "auth.client_id requires auth.client_secret and auth.token_url")
	}

	if c.Storage.Dir == "" {
		errs = append(errs, "storage.dir is required")
	}
	if _, err := storage.ParseKind(c.Storage.Kind); err != nil {
		errs = append(errs, "storage.kind: "+err.Error())
	}

	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if err := c.TracerConfig("").Validate(); err != nil {
		errs = append(errs, "tracing: "+err.Error())
	}

	if len(errs) > 0 {
		return &fkerrors.ConfigError{
			Key:    "validation",
			Reason: strings.Join(errs, "; "),
			Cause:  ErrInvalidConfig,
		}
	}
	return nil
}

// HTTPClientConfig returns the transport configuration.
func (c *Config) HTTPClientConfig() httpclient.Config {
	return httpclient.Config{
		Timeout:          c.HTTP.Timeout,
		UserAgent:        c.HTTP.UserAgent,
		MaxResponseBytes: c.HTTP.MaxResponseBytes,
	}
}

// RetryPolicy returns the retry interceptor configuration.
func (c *Config) RetryPolicy() interceptors.RetryConfig {
	return interceptors.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseBackoff: c.Retry.BaseBackoff,
		MaxBackoff:  c.Retry.MaxBackoff,
	}
}

// StorageFactoryConfig returns the storage factory configuration.
func (c *Config) StorageFactoryConfig() storage.FactoryConfig {
	return storage.FactoryConfig{
		Dir:             c.Storage.Dir,
		MasterKey:       c.Storage.MasterKey,
		KeychainService: c.Storage.KeychainService,
	}
}

// LoggerConfig returns the logging configuration.
func (c *Config) LoggerConfig() *log.Config {
	lc := log.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = log.Format(c.Log.Format)
	lc.AddSource = c.Log.AddSource
	return lc
}

// TracerConfig returns the tracing configuration for a build of version.
func (c *Config) TracerConfig(version string) tracing.Config {
	tc := tracing.DefaultConfig()
	tc.Exporter = tracing.Exporter(c.Tracing.Exporter)
	tc.Endpoint = c.Tracing.Endpoint
	tc.Insecure = c.Tracing.Insecure
	tc.SampleRate = c.Tracing.SampleRate
	tc.ServiceVersion = version
	return tc
}
