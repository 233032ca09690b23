// Package logger writes one structured log line per lifecycle event.
package logger

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

// Publisher implements ports.EventPublisher on top of slog.
type Publisher struct {
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event *domain.LifecycleEvent) error {
	switch data := event.Data.(type) {
	case domain.RequestReceivedData:
		p.logger.DebugContext(ctx, "request started",
			slog.String("request_id", event.RequestID),
			slog.String("method", data.Method),
			slog.String("path", data.Path),
			slog.String("route", data.Route),
			slog.String("remote_addr", data.RemoteAddr),
		)

	case domain.ResponseSentData:
		p.logger.InfoContext(ctx, "request completed",
			slog.String("request_id", event.RequestID),
			slog.String("method", data.Method),
			slog.String("route", data.Route),
			slog.Int("status", data.Status),
			slog.Duration("duration", data.Duration),
		)

	case domain.RequestFailedData:
		level := slog.LevelWarn
		if data.Status >= 500 {
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("request_id", event.RequestID),
			slog.String("method", data.Method),
			slog.String("route", data.Route),
			slog.String("state", data.State),
			slog.Int("status", data.Status),
			slog.String("code", string(data.Code)),
			slog.String("message", data.Message),
			slog.Duration("duration", data.Duration),
		}
		if data.Cause != "" {
			attrs = append(attrs, slog.String("error", data.Cause))
		}
		p.logger.LogAttrs(ctx, level, "request failed", attrs...)

	default:
		p.logger.DebugContext(ctx, "lifecycle event",
			slog.String("request_id", event.RequestID),
			slog.String("type", string(event.Type)),
		)
	}
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
