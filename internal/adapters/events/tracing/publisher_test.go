package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

func TestPublisher_AddsSpanEvents(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	p := NewPublisher()

	events := []*domain.LifecycleEvent{
		{
			Type: domain.LifecycleEventRequestReceived, RequestID: "r1", Timestamp: time.Now(),
			Data: domain.RequestReceivedData{Method: "GET", Route: "/api/v1/courses/{courseId}"},
		},
		{
			Type: domain.LifecycleEventRequestFailed, RequestID: "r1", Timestamp: time.Now(),
			Data: domain.RequestFailedData{Status: 500, Code: domain.ErrorCodeInternal, State: "HANDLED"},
		},
	}
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	got := spans[0]
	if len(got.Events()) != 2 {
		t.Fatalf("span events = %d, want 2", len(got.Events()))
	}
	if got.Events()[0].Name != "request.received" || got.Events()[1].Name != "request.failed" {
		t.Errorf("event names = %s, %s", got.Events()[0].Name, got.Events()[1].Name)
	}
	if got.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", got.Status().Code)
	}
}

func TestPublisher_NoSpan(t *testing.T) {
	err := NewPublisher().Publish(context.Background(), &domain.LifecycleEvent{Type: domain.LifecycleEventResponseSent})
	if err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}
