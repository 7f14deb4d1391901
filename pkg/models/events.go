package models

import (
	"encoding/json"
	"fmt"
)

// EventKind names one of the closed set of notification kinds broadcast on
// the bus. Payload shapes are fixed per kind.
type EventKind string

const (
	// EventMessage carries a full message that was appended or updated.
	EventMessage EventKind = "message-appended-or-updated"
	// EventStatus carries a status transition for an existing message.
	EventStatus EventKind = "status-changed"
	// EventSummary carries a regenerated thread summary.
	EventSummary EventKind = "summary-changed"
	// EventThread carries a full thread after a structural change
	// (create/branch/fork/retitle).
	EventThread EventKind = "thread-structure-changed"
)

// Event is the wire envelope for notifications. Delivery is at-least-once
// and unordered; consumers must apply events idempotently.
type Event struct {
	Kind EventKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type MessageEvent struct {
	ThreadID string  `json:"thread_id"`
	Message  Message `json:"message"`
}

type StatusEvent struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
}

type SummaryEvent struct {
	ThreadID string `json:"thread_id"`
	Summary  string `json:"summary"`
}

type ThreadEvent struct {
	Thread Thread `json:"thread"`
}

// NewEvent wraps a typed payload into an Event envelope. The payload type
// must match the kind; mismatches are a programming error and reported.
func NewEvent(kind EventKind, payload any) (Event, error) {
	switch kind {
	case EventMessage:
		if _, ok := payload.(MessageEvent); !ok {
			return Event{}, fmt.Errorf("event %s: unexpected payload %T", kind, payload)
		}
	case EventStatus:
		if _, ok := payload.(StatusEvent); !ok {
			return Event{}, fmt.Errorf("event %s: unexpected payload %T", kind, payload)
		}
	case EventSummary:
		if _, ok := payload.(SummaryEvent); !ok {
			return Event{}, fmt.Errorf("event %s: unexpected payload %T", kind, payload)
		}
	case EventThread:
		if _, ok := payload.(ThreadEvent); !ok {
			return Event{}, fmt.Errorf("event %s: unexpected payload %T", kind, payload)
		}
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Event{Kind: kind, Data: b}, nil
}

// Decode unmarshals the envelope payload into the struct matching its kind
// and returns it as one of MessageEvent, StatusEvent, SummaryEvent or
// ThreadEvent.
func (e Event) Decode() (any, error) {
	switch e.Kind {
	case EventMessage:
		var p MessageEvent
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
		}
		return p, nil
	case EventStatus:
		var p StatusEvent
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
		}
		return p, nil
	case EventSummary:
		var p SummaryEvent
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
		}
		return p, nil
	case EventThread:
		var p ThreadEvent
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Kind, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", e.Kind)
}
