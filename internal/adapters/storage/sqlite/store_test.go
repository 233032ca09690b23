package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	events := []*domain.LifecycleEvent{
		{
			Type:      domain.LifecycleEventRequestReceived,
			RequestID: "req-1",
			Timestamp: ts,
			Data:      domain.RequestReceivedData{Method: "GET", Path: "/api/v1/courses"},
		},
		{
			Type:      domain.LifecycleEventRequestReceived,
			RequestID: "req-2",
			Timestamp: ts,
		},
		{
			Type:      domain.LifecycleEventResponseSent,
			RequestID: "req-1",
			Timestamp: ts.Add(time.Millisecond),
			Data:      domain.ResponseSentData{Method: "GET", Status: 200},
		},
	}
	for _, e := range events {
		if err := s.AppendLifecycleEvent(ctx, e); err != nil {
			t.Fatalf("AppendLifecycleEvent() error = %v", err)
		}
	}

	got, err := s.ListLifecycleEvents(ctx, "req-1")
	if err != nil {
		t.Fatalf("ListLifecycleEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListLifecycleEvents() returned %d events, want 2", len(got))
	}
	if got[0].Type != domain.LifecycleEventRequestReceived || got[1].Type != domain.LifecycleEventResponseSent {
		t.Errorf("event order = %s, %s", got[0].Type, got[1].Type)
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, ts)
	}

	var data domain.ResponseSentData
	raw, ok := got[1].Data.(json.RawMessage)
	if !ok {
		t.Fatalf("Data type = %T, want json.RawMessage", got[1].Data)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Status != 200 {
		t.Errorf("Status = %d, want 200", data.Status)
	}
}

func TestStore_ListEmpty(t *testing.T) {
	s := newStore(t)

	for _, id := range []string{"", "unknown"} {
		got, err := s.ListLifecycleEvents(context.Background(), id)
		if err != nil {
			t.Fatalf("ListLifecycleEvents(%q) error = %v", id, err)
		}
		if len(got) != 0 {
			t.Errorf("ListLifecycleEvents(%q) = %d events, want 0", id, len(got))
		}
	}
}

func TestStore_AppendNil(t *testing.T) {
	if err := newStore(t).AppendLifecycleEvent(context.Background(), nil); err != nil {
		t.Errorf("AppendLifecycleEvent(nil) error = %v", err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/invalid/path/that/does/not/exist/events.db"); err == nil {
		t.Error("New() error = nil for invalid path")
	}
}
