package mq

import (
	"time"
)

// Reading lifecycle event types
const (
	EventReadingSubmitted = "submitted"
	EventReadingVerified  = "verified"
	EventReadingRejected  = "rejected"
)

// ReadingEvent is published after a reading is created or leaves PENDING
type ReadingEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	ReadingID    string    `json:"reading_id"`
	ConnectionID string    `json:"connection_id"`
	ServiceType  string    `json:"service_type"`
	ActorID      string    `json:"actor_id"`
	Status       string    `json:"status"`
	Consumption  float64   `json:"consumption"`
	OccurredAt   time.Time `json:"occurred_at"`
}
