package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestSetup_None(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Exporter: ExporterNone, Version: "test"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := otel.Tracer("dyndns").Start(context.Background(), "noop")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span even without an exporter")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestSetup_Console(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Exporter: ExporterConsole, Version: "v1.2.3", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := otel.Tracer("dyndns").Start(context.Background(), "reconciler.Reconcile")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "reconciler.Reconcile") {
		t.Errorf("expected span name in output, got %q", out)
	}
	if !strings.Contains(out, "v1.2.3") {
		t.Errorf("expected service version in output")
	}
}

func TestSetup_OTLP(t *testing.T) {
	// The gRPC exporter connects lazily, so an unreachable endpoint is fine here.
	shutdown, err := Setup(context.Background(), Config{Exporter: ExporterOTLP, Endpoint: "127.0.0.1:1", Insecure: true})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
