// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "placecore", ExporterType: ExporterGRPC})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.Enabled() {
		t.Error("Expected disabled provider")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "placecore", ExporterType: "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNewProvider_HTTPExporterShutdown(t *testing.T) {
	// The OTLP HTTP exporter connects lazily, so construction succeeds
	// without a collector.
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "placecore",
		ExporterType: ExporterHTTP,
		Endpoint:     "127.0.0.1:1",
		SamplingRate: 0,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !provider.Enabled() {
		t.Fatal("Expected enabled provider")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = provider.Shutdown(ctx)

	_, _ = NewProvider(context.Background(), Config{Enabled: false})
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var nilProvider *Provider
	if err := nilProvider.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on nil shutdown, got: %v", err)
	}
	if err := (&Provider{}).Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}
}

func TestTracer(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Enabled: false}); err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	ctx, span := Tracer("test-tracer").Start(context.Background(), "test-span")
	span.End()
	if trace.SpanFromContext(ctx) == nil {
		t.Error("Expected span in context")
	}
}
