package model

import (
	"time"
)

// EventRequest represents an incoming behavioral event payload.
type EventRequest struct {
	ID         string                 `json:"id"`
	SubjectID  string                 `json:"subject_id"`
	Type       string                 `json:"type"`
	Channel    string                 `json:"channel"`
	Attributes map[string]interface{} `json:"attributes"`
	OccurredAt int64                  `json:"occurred_at"`
}

// Event is the behavioral event persisted in the event store.
// Events are immutable once stored.
type Event struct {
	ID         string
	SubjectID  string
	Type       string
	Channel    string
	Attributes map[string]interface{}
	OccurredAt time.Time
	IngestedAt time.Time
}

// EventResult reports the outcome of ingesting a single event.
type EventResult struct {
	Status string `json:"status"` // accepted, duplicate
	ID     string `json:"id"`
}

// Well-known event types the engine reacts to specially.
const (
	EventUnsubscribe    = "unsubscribe"
	EventContactUpdated = "contact_updated"
)

// Attribute keys used by the special event types.
const (
	AttrChannel = "channel"
	AttrEmail   = "email"
	AttrPhone   = "phone"
	AttrName    = "name"
)

// StringAttr returns a string attribute, or "" when absent or not a string.
func (e Event) StringAttr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	v, ok := e.Attributes[key].(string)
	if !ok {
		return ""
	}
	return v
}
