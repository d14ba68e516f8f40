// Package web serves the deal dashboard: the deal form, stat cards and recent contacts,
// a JSON API over the form store and a server-sent event stream of form changes.
package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexuslink/dealdesk/pkg/deal"
	"github.com/nexuslink/dealdesk/pkg/status"
)

// EventType represents the type of activity event.
type EventType string

// event type constants for the activity log and SSE stream.
const (
	EventTypeStatus  EventType = "status"  // form status transition
	EventTypeInvalid EventType = "invalid" // submit blocked by validation errors
	EventTypeWarn    EventType = "warn"    // warning, e.g. a failed config reload
)

// Event is one entry of the form activity log.
type Event struct {
	Type      EventType     `json:"type"`
	Status    status.Status `json:"status"`
	Text      string        `json:"text"`
	DealID    deal.ID       `json:"dealId,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewStatusEvent creates a status transition event with current timestamp.
func NewStatusEvent(s status.Status, text string) Event {
	return Event{Type: EventTypeStatus, Status: s, Text: text, Timestamp: time.Now()}
}

// NewInvalidEvent creates a validation event.
func NewInvalidEvent(s status.Status, text string) Event {
	return Event{Type: EventTypeInvalid, Status: s, Text: text, Timestamp: time.Now()}
}

// NewWarnEvent creates a warning event.
func NewWarnEvent(s status.Status, text string) Event {
	return Event{Type: EventTypeWarn, Status: s, Text: text, Timestamp: time.Now()}
}

// JSON returns the event as JSON bytes for SSE streaming.
func (e Event) JSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
