// Package tracing records lifecycle events on the request's OpenTelemetry span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

// Publisher implements ports.EventPublisher. Events published with a context
// that carries no recording span are dropped.
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	attrs := []attribute.KeyValue{attribute.String("request.id", event.RequestID)}

	switch data := event.Data.(type) {
	case domain.RequestReceivedData:
		attrs = append(attrs,
			attribute.String("http.route", data.Route),
			attribute.String("http.method", data.Method),
		)
		if data.Route != "" {
			span.SetAttributes(attribute.String("http.route", data.Route))
		}

	case domain.ResponseSentData:
		attrs = append(attrs,
			attribute.Int("http.status_code", data.Status),
			attribute.Int64("duration_ms", data.Duration.Milliseconds()),
		)

	case domain.RequestFailedData:
		attrs = append(attrs,
			attribute.Int("http.status_code", data.Status),
			attribute.String("error.code", string(data.Code)),
			attribute.String("pipeline.state", data.State),
		)
		if data.Status >= 500 {
			span.SetStatus(codes.Error, string(data.Code))
		}
	}

	span.AddEvent(string(event.Type), trace.WithAttributes(attrs...), trace.WithTimestamp(event.Timestamp))
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
