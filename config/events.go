package config

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the configuration lifecycle notifications
type EventType string

// Event variants emitted by the Manager
const (
	EventLoaded   EventType = "loaded"
	EventChanged  EventType = "changed"
	EventRollback EventType = "rollback"
	EventError    EventType = "error"
)

// ChangeOrigin distinguishes caller-driven updates from watch-driven reloads
type ChangeOrigin string

// Recognized change origins
const (
	OriginRuntime ChangeOrigin = "runtime"
	OriginReload  ChangeOrigin = "reload"
)

// Event is a configuration change notification. A changed event carries one
// differing path with its old and new value; an accepted runtime update
// emits one, and a reload emits one per path the fresh tree changed. Events
// are dispatched strictly after the new state is visible to Get, so a
// handler reading the manager during dispatch sees the new tree.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Path      string          `json:"path,omitempty"`
	OldValue  any             `json:"old_value,omitempty"`
	NewValue  any             `json:"new_value,omitempty"`
	Origin    ChangeOrigin    `json:"origin"`
	Result    *EnhancedResult `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// newEvent stamps an event with identity and time
func newEvent(eventType EventType, origin ChangeOrigin) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}
