package events

import nanoid "github.com/matoous/go-nanoid/v2"

// BaseEvent carries the fields shared by every client event: the wire
// type discriminator and a client-assigned event id.
type BaseEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

func (e BaseEvent) EventType() string { return e.Type }
func (e BaseEvent) ID() string        { return e.EventID }

func NewBaseEvent(eventType string) BaseEvent {
	id, err := nanoid.New()
	if err != nil {
		panic(err)
	}
	return BaseEvent{
		EventID: id,
		Type:    eventType,
	}
}
