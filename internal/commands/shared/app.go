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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/fetchkit/internal/config"
	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/internal/tracing"
	"github.com/tombee/fetchkit/pkg/httpclient"
	"github.com/tombee/fetchkit/pkg/interceptors"
	"github.com/tombee/fetchkit/pkg/network"
	"github.com/tombee/fetchkit/pkg/storage"
)

// App bundles what a command needs to make requests and persist values.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Manager *network.Manager
	Storage *storage.Factory
	Metrics *prometheus.Registry
	Tracer  trace.Tracer

	tracing *tracing.Provider
}

// AppOption adjusts how NewApp wires the application.
type AppOption func(*appOptions)

type appOptions struct {
	transport network.Transport
	headers   map[string]string
	logOutput io.Writer
}

// WithTransport replaces the HTTP transport.
func WithTransport(t network.Transport) AppOption {
	return func(o *appOptions) {
		o.transport = t
	}
}

// WithHeaders adds per-command request headers on top of the configured ones.
func WithHeaders(headers map[string]string) AppOption {
	return func(o *appOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithLogOutput redirects log records.
func WithLogOutput(w io.Writer) AppOption {
	return func(o *appOptions) {
		o.logOutput = w
	}
}

// LoadConfig loads configuration from the --config path (or its defaults)
// and applies the --verbose and --quiet flags.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(GetConfigPath()))
	if err != nil {
		return nil, NewUsageError("invalid configuration", err)
	}
	if GetVerbose() {
		cfg.Log.Level = "debug"
	} else if GetQuiet() {
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// NewApp loads configuration and wires the network manager, its
// interceptors and storage.
func NewApp(ctx context.Context, opts ...AppOption) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewAppFromConfig(ctx, cfg, opts...)
}

// NewAppFromConfig wires an App from an already loaded configuration.
//
// Request interceptors run as: headers, request ID, trace propagation, rate
// limit, bearer auth. Response interceptors run as: metrics, span events,
// bearer re-authentication, retry. Metrics come first so every attempt made
// by the later interceptors is counted.
func NewAppFromConfig(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	o := appOptions{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	lc := cfg.LoggerConfig()
	lc.Output = o.logOutput
	logger := log.New(lc)

	v, _, _ := GetVersion()
	tp, err := tracing.NewProvider(ctx, cfg.TracerConfig(v), tracing.WithConsoleWriter(o.logOutput))
	if err != nil {
		return nil, NewUsageError("invalid tracing configuration", err)
	}

	transport := o.transport
	if transport == nil {
		t, err := httpclient.NewTransport(cfg.HTTPClientConfig(), logger)
		if err != nil {
			return nil, NewUsageError("invalid http configuration", err)
		}
		transport = t
	}

	reg := prometheus.NewRegistry()
	metrics, err := interceptors.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	headers := make(map[string]string, len(cfg.HTTP.Headers)+len(o.headers))
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	for k, v := range o.headers {
		headers[k] = v
	}

	requestICs := []network.RequestInterceptor{
		interceptors.Headers(headers),
		interceptors.RequestID(),
		interceptors.Propagate(interceptors.W3CPropagator()),
		interceptors.RateLimit(interceptors.NewLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)),
	}
	responseICs := []network.ResponseInterceptor{
		metrics,
		interceptors.RecordOutcome(),
	}

	if bearer := newBearer(ctx, cfg.Auth, logger); bearer != nil {
		requestICs = append(requestICs, bearer)
		responseICs = append(responseICs, bearer)
	}
	if cfg.Retry.MaxAttempts > 1 {
		responseICs = append(responseICs, interceptors.Retry(cfg.RetryPolicy()))
	}

	manager, err := network.NewManager(transport,
		network.WithLogger(logger),
		network.WithRequestInterceptors(requestICs...),
		network.WithResponseInterceptors(responseICs...),
	)
	if err != nil {
		return nil, err
	}

	fc := cfg.StorageFactoryConfig()
	fc.Logger = logger

	return &App{
		Config:  cfg,
		Logger:  logger,
		Manager: manager,
		Storage: storage.NewFactory(fc),
		Metrics: reg,
		Tracer:  tp.Tracer("github.com/tombee/fetchkit/cli"),
		tracing: tp,
	}, nil
}

func newBearer(ctx context.Context, auth config.AuthConfig, logger *slog.Logger) *interceptors.Bearer {
	switch {
	case auth.Token != "":
		return interceptors.NewBearer(interceptors.StaticToken(auth.Token), interceptors.WithAuthLogger(logger))
	case auth.ClientID != "":
		source := interceptors.ClientCredentials(ctx, auth.ClientID, auth.ClientSecret, auth.TokenURL, auth.Scopes)
		return interceptors.NewBearer(source, interceptors.WithAuthLogger(logger))
	default:
		return nil
	}
}

// StorageKind parses kind, falling back to the configured default when kind
// is empty.
func (a *App) StorageKind(kind string) (storage.Kind, error) {
	if kind == "" {
		kind = a.Config.Storage.Kind
	}
	k, err := storage.ParseKind(kind)
	if err != nil {
		return "", NewUsageError("invalid --storage", err)
	}
	return k, nil
}

// WriteMetrics writes the request metrics in Prometheus text format.
func (a *App) WriteMetrics(w io.Writer) error {
	families, err := a.Metrics.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes spans, prints metrics when --metrics was given, and releases
// storage engines.
func (a *App) Close(ctx context.Context, w io.Writer) error {
	var firstErr error
	if GetMetrics() {
		if err := a.WriteMetrics(w); err != nil {
			firstErr = err
		}
	}
	if err := a.tracing.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.Storage.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
