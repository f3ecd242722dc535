package webhook

import (
	"time"
)

type EventType string

// Event names mirror the client lifecycle events recorded in the session log.
const (
	EventQR             EventType = "qr"
	EventAuthenticated  EventType = "authenticated"
	EventReady          EventType = "ready"
	EventAuthFailure    EventType = "auth_failure"
	EventDisconnected   EventType = "disconnected"
	EventMessageCreate  EventType = "message_create"
	EventError          EventType = "error"
	EventSessionCleared EventType = "session_cleared"
	EventRestarted      EventType = "restarted"
)

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryDropped DeliveryStatus = "dropped"
)

type Config struct {
	Enabled       bool
	URL           string
	Secret        string
	Events        []EventType
	Workers       int
	RetryLimit    int
	RetryBackoff  time.Duration
	Timeout       time.Duration
	QueueSize     int
	AllowInsecure bool
	AllowPrivate  bool
}

type WebhookEvent struct {
	EventType EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type DeliveryLog struct {
	ID           string         `json:"id"`
	EventType    EventType      `json:"event_type"`
	Status       DeliveryStatus `json:"status"`
	AttemptCount int            `json:"attempt_count"`
	LastError    string         `json:"last_error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
