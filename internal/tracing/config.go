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

// Package tracing configures the OpenTelemetry tracer provider used by the
// fetchkit CLI. Spans can be printed to a writer or sent to an OTLP/HTTP
// collector.
package tracing

import (
	"fmt"
	"strings"
)

// Exporter names where finished spans go.
type Exporter string

const (
	// ExporterNone records nothing.
	ExporterNone Exporter = "none"
	// ExporterConsole writes spans as JSON to a writer.
	ExporterConsole Exporter = "console"
	// ExporterOTLP sends spans to an OTLP/HTTP collector.
	ExporterOTLP Exporter = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	// Exporter selects the span destination.
	// Default: none
	Exporter Exporter

	// Endpoint is the OTLP/HTTP host:port. Required for ExporterOTLP.
	Endpoint string

	// Insecure disables TLS for the OTLP exporter (development only).
	Insecure bool

	// SampleRate is the fraction of root spans recorded (0.0 - 1.0).
	// Default: 1.0
	SampleRate float64

	// ServiceName identifies this program in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string
}

// DefaultConfig returns a Config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		Exporter:    ExporterNone,
		SampleRate:  1.0,
		ServiceName: "fetchkit",
	}
}

// Enabled reports whether spans are exported anywhere.
func (c Config) Enabled() bool {
	return c.Exporter != "" && c.Exporter != ExporterNone
}

// ParseExporter converts a string to an Exporter.
func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(strings.TrimSpace(s))); e {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterConsole, ExporterOTLP:
		return e, nil
	default:
		return "", fmt.Errorf("unknown trace exporter %q (want none, console or otlp)", s)
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if _, err := ParseExporter(string(c.Exporter)); err != nil {
		return err
	}
	if c.Exporter == ExporterOTLP && c.Endpoint == "" {
		return fmt.Errorf("endpoint is required for the otlp exporter")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}
