package exporters

import (
	"context"
	"strings"
	"testing"
)

// TestExporter_InvalidName verifies unknown exporter name returns error.
func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid")
	if err == nil {
		t.Fatal("expected error for invalid exporter name")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown") {
		t.Errorf("expected error to contain 'unknown', got: %v", err)
	}
}

// TestExporter_StdoutTracing verifies stdout tracing exporter.
func TestExporter_StdoutTracing(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

// TestExporter_StdoutMetrics verifies stdout metrics reader.
func TestExporter_StdoutMetrics(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestExporter_OtlpTracingUnwired verifies otlp is a named but unbuilt choice.
func TestExporter_OtlpTracingUnwired(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "otlp")
	if err == nil {
		t.Fatal("expected error selecting otlp tracing exporter")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "not built into this binary") {
		t.Errorf("expected error to explain otlp is unwired, got: %v", err)
	}
}

// TestExporter_OtlpMetricsUnwired verifies otlp is a named but unbuilt choice.
func TestExporter_OtlpMetricsUnwired(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "otlp")
	if err == nil {
		t.Fatal("expected error selecting otlp metrics reader")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "not built into this binary") {
		t.Errorf("expected error to explain otlp is unwired, got: %v", err)
	}
}

// TestExporter_PrometheusReturnsReader verifies Prometheus metrics reader.
func TestExporter_PrometheusReturnsReader(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

// TestExporter_NoneReturnsDiscard verifies 'none' and '' return a discard exporter.
func TestExporter_NoneReturnsDiscard(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil {
			t.Fatalf("failed to create %q exporter: %v", name, err)
		}
		if exp == nil {
			t.Fatalf("expected non-nil discard exporter for %q", name)
		}
	}
}

// TestExporter_NoneMetricsReturnsDiscard verifies 'none' and '' return a discard reader.
func TestExporter_NoneMetricsReturnsDiscard(t *testing.T) {
	for _, name := range []string{"none", ""} {
		reader, err := NewMetricsReader(context.Background(), name)
		if err != nil {
			t.Fatalf("failed to create %q metrics reader: %v", name, err)
		}
		if reader == nil {
			t.Fatalf("expected non-nil discard reader for %q", name)
		}
	}
}

// TestExporter_MetricsInvalidName verifies unknown metrics exporter returns error.
func TestExporter_MetricsInvalidName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue")
	if err == nil {
		t.Fatal("expected error for invalid metrics exporter name")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown") {
		t.Errorf("expected error to contain 'unknown', got: %v", err)
	}
}
