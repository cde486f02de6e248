// Package message wraps one CDEvent (carried as a CloudEvent) for dispatch on
// the bus.
package message

import (
	"encoding/json"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Message is immutable once created. Every sink receives a copy of the same
// value, so accessors hand out clones of the wrapped event.
type Message struct {
	event      cloudevents.Event
	receivedAt time.Time
}

// New wraps e, taking its own copy so later changes by the caller are not
// observed by sinks.
func New(e cloudevents.Event) Message {
	return Message{event: e.Clone(), receivedAt: time.Now().UTC()}
}

// Parse decodes a structured-mode JSON CloudEvent and validates it.
func Parse(data []byte) (Message, error) {
	var e cloudevents.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Message{}, err
	}
	if err := e.Validate(); err != nil {
		return Message{}, err
	}
	return New(e), nil
}

func (m Message) Event() cloudevents.Event { return m.event.Clone() }

func (m Message) ID() string     { return m.event.ID() }
func (m Message) Type() string   { return m.event.Type() }
func (m Message) Source() string { return m.event.Source() }

// ReceivedAt is when the source handed the event to the collector.
func (m Message) ReceivedAt() time.Time { return m.receivedAt }

// MarshalJSON renders the wrapped event in structured JSON mode.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.event)
}
