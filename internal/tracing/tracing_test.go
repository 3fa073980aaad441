package tracing

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")

	shutdown, err := Init("nbodysim-test")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestStartSpanWithoutInit(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "step", StepAttributes(1, "direct", 10, 0.01))
	defer span.End()

	if ctx == nil {
		t.Fatal("expected context")
	}
	if span.SpanContext().IsSampled() {
		t.Error("no-op tracer should not sample")
	}
}
