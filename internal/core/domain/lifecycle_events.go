package domain

import (
	"time"
)

// LifecycleEvent is an observability signal emitted by the request pipeline.
// Events are published to an event bus; sinks decide how they are persisted
// or displayed.
type LifecycleEvent struct {
	Type      LifecycleEventType `json:"type"`
	RequestID string             `json:"request_id"`
	Timestamp time.Time          `json:"timestamp"`
	Data      any                `json:"data"`
}

// LifecycleEventType identifies the type of lifecycle event.
type LifecycleEventType string

const (
	LifecycleEventRequestReceived LifecycleEventType = "request.received"
	LifecycleEventResponseSent    LifecycleEventType = "response.sent"
	LifecycleEventRequestFailed   LifecycleEventType = "request.failed"
)

// RequestReceivedData contains data for request.received events.
type RequestReceivedData struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Route      string `json:"route"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// ResponseSentData contains data for response.sent events.
type ResponseSentData struct {
	Method   string        `json:"method"`
	Route    string        `json:"route"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"duration_ns"`
}

// RequestFailedData contains data for request.failed events.
// Cause carries the full internal error text and is never sent to the caller.
type RequestFailedData struct {
	Method   string        `json:"method"`
	Route    string        `json:"route"`
	State    string        `json:"state"`
	Status   int           `json:"status"`
	Code     ErrorCode     `json:"code"`
	Message  string        `json:"message"`
	Cause    string        `json:"cause,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
