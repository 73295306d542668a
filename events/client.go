package events

// ClientEvent is implemented by every event the application can send over
// the socket. The type discriminator is fixed at construction time.
type ClientEvent interface {
	EventType() string
	ID() string
}

type SessionUpdateEvent struct {
	BaseEvent
	Session SessionConfig `json:"session"`
}

func NewSessionUpdateEvent(session SessionConfig) SessionUpdateEvent {
	return SessionUpdateEvent{
		BaseEvent: NewBaseEvent(TypeSessionUpdate),
		Session:   session,
	}
}

type InputAudioBufferAppendEvent struct {
	BaseEvent
	Audio string `json:"audio"` // base64-encoded PCM16 at 24kHz
}

func NewInputAudioBufferAppendEvent(audioBase64 string) InputAudioBufferAppendEvent {
	return InputAudioBufferAppendEvent{
		BaseEvent: NewBaseEvent(TypeInputAudioBufferAppend),
		Audio:     audioBase64,
	}
}

type InputAudioBufferCommitEvent struct {
	BaseEvent
}

func NewInputAudioBufferCommitEvent() InputAudioBufferCommitEvent {
	return InputAudioBufferCommitEvent{BaseEvent: NewBaseEvent(TypeInputAudioBufferCommit)}
}

type InputAudioBufferClearEvent struct {
	BaseEvent
}

func NewInputAudioBufferClearEvent() InputAudioBufferClearEvent {
	return InputAudioBufferClearEvent{BaseEvent: NewBaseEvent(TypeInputAudioBufferClear)}
}

type ConversationItemCreateEvent struct {
	BaseEvent
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

func NewConversationItemCreateEvent(item ConversationItem) ConversationItemCreateEvent {
	return ConversationItemCreateEvent{
		BaseEvent: NewBaseEvent(TypeConversationItemCreate),
		Item:      item,
	}
}

type ConversationItemTruncateEvent struct {
	BaseEvent
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

func NewConversationItemTruncateEvent(itemID string, contentIndex, audioEndMs int) ConversationItemTruncateEvent {
	return ConversationItemTruncateEvent{
		BaseEvent:    NewBaseEvent(TypeConversationItemTruncate),
		ItemID:       itemID,
		ContentIndex: contentIndex,
		AudioEndMs:   audioEndMs,
	}
}

type ConversationItemDeleteEvent struct {
	BaseEvent
	ItemID string `json:"item_id"`
}

func NewConversationItemDeleteEvent(itemID string) ConversationItemDeleteEvent {
	return ConversationItemDeleteEvent{
		BaseEvent: NewBaseEvent(TypeConversationItemDelete),
		ItemID:    itemID,
	}
}

type ResponseCreateEvent struct {
	BaseEvent
	Response ResponseCreatePayload `json:"response"`
}

func NewResponseCreateEvent(payload ResponseCreatePayload) ResponseCreateEvent {
	return ResponseCreateEvent{
		BaseEvent: NewBaseEvent(TypeResponseCreate),
		Response:  payload,
	}
}

type ResponseCancelEvent struct {
	BaseEvent
	ResponseID string `json:"response_id,omitempty"`
}

func NewResponseCancelEvent(responseID string) ResponseCancelEvent {
	return ResponseCancelEvent{
		BaseEvent:  NewBaseEvent(TypeResponseCancel),
		ResponseID: responseID,
	}
}
