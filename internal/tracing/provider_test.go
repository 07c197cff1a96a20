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

package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestParseExporter(t *testing.T) {
	tests := []struct {
		in      string
		want    Exporter
		wantErr bool
	}{
		{in: "", want: ExporterNone},
		{in: "none", want: ExporterNone},
		{in: "Console", want: ExporterConsole},
		{in: " otlp ", want: ExporterOTLP},
		{in: "jaeger", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseExporter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExporter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExporter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Exporter = ExporterOTLP
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("expected endpoint error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample_rate error")
	}
}

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := p.Tracer("test").Start(context.Background(), "op")
	if span.IsRecording() {
		t.Error("disabled provider should not record spans")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestConsoleExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Exporter = ExporterConsole
	cfg.ServiceVersion = "1.2.3"

	p, err := NewProvider(context.Background(), cfg, WithConsoleWriter(&buf))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := p.Tracer("test").Start(context.Background(), "fetchkit get")
	if !span.IsRecording() {
		t.Fatal("console provider should record spans")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"fetchkit get", "1.2.3"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}
