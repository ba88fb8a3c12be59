package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	cfg := ConfigFromEnv("booking-service")
	if cfg.Enabled {
		t.Fatal("expected tracing disabled")
	}
	if cfg.SampleRatio != 1.0 {
		t.Fatalf("expected out of range ratio to fall back to 1, got %v", cfg.SampleRatio)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	tp, ts := TraceContextStrings(ctx)
	if tp == "" {
		t.Fatal("expected traceparent")
	}
	restored := ContextWithTraceContext(context.Background(), tp, ts)
	if got := trace.SpanContextFromContext(restored).TraceID(); got != traceID {
		t.Fatalf("expected trace id %s, got %s", traceID, got)
	}
	if ContextWithTraceContext(ctx, "", "") != ctx {
		t.Fatal("expected empty trace context to return ctx unchanged")
	}
}
