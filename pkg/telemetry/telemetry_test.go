package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "default", modify: func(c *Config) {}},
		{name: "bad level", modify: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", modify: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", modify: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "bad sampling rate", modify: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: true},
		{name: "metrics without textfile", modify: func(c *Config) { c.Metrics.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "info", Format: "json"})

	logger.NewComponentLogger("workflow").WithRunID("run-1").Info("hello")
	logger.Debug("hidden")

	out := buf.String()
	for _, want := range []string{`"component":"workflow"`, `"run_id":"run-1"`, `"message":"hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "debug", Format: "json"})

	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Recording on disabled or nil metrics is a no-op.
	m.RecordModuleCall("list", "success", time.Second)
	m.SetAspsDiscovered(3)
	var nilMetrics *Metrics
	nilMetrics.RecordProviderCall("aws", "terminate", time.Second)

	if err := m.WriteTextfile(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceres.prom")
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "ceres", Textfile: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.RecordModuleCall("list", "success", 20*time.Millisecond)
	m.RecordProviderCall("aws", "terminate", time.Second)
	m.RecordProviderError("aws", "terminate")
	m.RecordError("provider_failed")
	m.SetAspsDiscovered(22)

	if err := m.WriteTextfile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	for _, want := range []string{
		`ceres_module_calls_total{module="list",status="success"} 1`,
		`ceres_provider_errors_total{operation="terminate",provider="aws"} 1`,
		`ceres_asps_discovered 22`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %q in textfile:\n%s", want, data)
		}
	}
}

func TestStartSpan_WithoutTelemetry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()

	if ctx == nil {
		t.Fatal("expected context")
	}
	if TraceID(ctx) != "" {
		t.Error("expected no trace id without telemetry")
	}
	if MetricsFromContext(ctx) != nil {
		t.Error("expected no metrics without telemetry")
	}
}

func TestTelemetry_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"

	tel, err := NewTelemetry(cfg, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := tel.WithContext(context.Background())
	ctx, span := StartSpan(ctx, "provider.terminate", AttrProviderName.String("aws"))
	if TraceID(ctx) == "" {
		t.Error("expected trace id")
	}
	RecordSuccess(span)
	span.End()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "provider.terminate") {
		t.Errorf("expected exported span, got %s", buf.String())
	}
}
