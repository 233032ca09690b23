package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracer("coursegate-test", slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithWriter(&buf),
		WithServiceVersion("1.2.3"),
		WithEnvironment("development"),
	)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "GET /api/v1/courses")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"GET /api/v1/courses", "coursegate-test", "1.2.3"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported span missing %q", want)
		}
	}
}
