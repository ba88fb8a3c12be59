package kafkax

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %#v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, MetaHeaders("evt-1", "booking.appointment.booked.v1"))
	if HeaderValue(headers, HeaderEventID) != "evt-1" {
		t.Fatal("expected event id header to survive")
	}
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := HeaderValue(headers, "traceparent"); got != want {
		t.Fatalf("unexpected traceparent %q", got)
	}
}
