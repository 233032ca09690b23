package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

func TestPublisher(t *testing.T) {
	tests := []struct {
		name      string
		event     *domain.LifecycleEvent
		wantMsg   string
		wantLevel string
		wantAttrs map[string]any
	}{
		{
			name: "received",
			event: &domain.LifecycleEvent{
				Type: domain.LifecycleEventRequestReceived, RequestID: "r1",
				Data: domain.RequestReceivedData{Method: "GET", Path: "/api/v1/courses"},
			},
			wantMsg:   "request started",
			wantLevel: "DEBUG",
			wantAttrs: map[string]any{"request_id": "r1", "path": "/api/v1/courses"},
		},
		{
			name: "completed",
			event: &domain.LifecycleEvent{
				Type: domain.LifecycleEventResponseSent, RequestID: "r2",
				Data: domain.ResponseSentData{Method: "GET", Status: 200, Duration: time.Millisecond},
			},
			wantMsg:   "request completed",
			wantLevel: "INFO",
			wantAttrs: map[string]any{"status": float64(200)},
		},
		{
			name: "client failure",
			event: &domain.LifecycleEvent{
				Type: domain.LifecycleEventRequestFailed, RequestID: "r3",
				Data: domain.RequestFailedData{Status: 400, Code: domain.ErrorCodeValidation, State: "ARRIVED"},
			},
			wantMsg:   "request failed",
			wantLevel: "WARN",
			wantAttrs: map[string]any{"code": "VALIDATION_ERROR", "state": "ARRIVED"},
		},
		{
			name: "server failure carries cause",
			event: &domain.LifecycleEvent{
				Type: domain.LifecycleEventRequestFailed, RequestID: "r4",
				Data: domain.RequestFailedData{Status: 500, Code: domain.ErrorCodeInternal, Cause: "db closed"},
			},
			wantMsg:   "request failed",
			wantLevel: "ERROR",
			wantAttrs: map[string]any{"error": "db closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			if err := NewPublisher(log).Publish(context.Background(), tt.event); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}

			var line map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line); err != nil {
				t.Fatalf("log line is not JSON: %q", buf.String())
			}
			if line["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %v", line["msg"], tt.wantMsg)
			}
			if line["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", line["level"], tt.wantLevel)
			}
			for k, want := range tt.wantAttrs {
				if line[k] != want {
					t.Errorf("%s = %v, want %v", k, line[k], want)
				}
			}
		})
	}
}
