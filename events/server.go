package events

import (
	"encoding/json"
	"fmt"
)

// ServerEvent is implemented by every event the server can deliver.
// Server events are produced only by UnmarshalServerEvent and are never
// mutated after decoding.
type ServerEvent interface {
	EventType() string
	ID() string
}

type serverEventBase struct {
	EventID string `json:"event_id,omitempty"`
}

func (e serverEventBase) ID() string { return e.EventID }

type ErrorEvent struct {
	serverEventBase
	ErrorDetail ErrorDetail `json:"error"`
}

func (*ErrorEvent) EventType() string { return TypeError }

func (e *ErrorEvent) Error() string { return e.ErrorDetail.Error() }

type SessionCreatedEvent struct {
	serverEventBase
	Session SessionResource `json:"session"`
}

func (*SessionCreatedEvent) EventType() string { return TypeSessionCreated }

type SessionUpdatedEvent struct {
	serverEventBase
	Session SessionResource `json:"session"`
}

func (*SessionUpdatedEvent) EventType() string { return TypeSessionUpdated }

type ConversationItemCreatedEvent struct {
	serverEventBase
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

func (*ConversationItemCreatedEvent) EventType() string { return TypeConversationItemCreated }

type ConversationItemTruncatedEvent struct {
	serverEventBase
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

func (*ConversationItemTruncatedEvent) EventType() string { return TypeConversationItemTruncated }

type ConversationItemDeletedEvent struct {
	serverEventBase
	ItemID string `json:"item_id"`
}

func (*ConversationItemDeletedEvent) EventType() string { return TypeConversationItemDeleted }

type InputAudioTranscriptionCompletedEvent struct {
	serverEventBase
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

func (*InputAudioTranscriptionCompletedEvent) EventType() string {
	return TypeConversationItemInputAudioTranscriptionCompleted
}

type InputAudioTranscriptionFailedEvent struct {
	serverEventBase
	ItemID       string      `json:"item_id"`
	ContentIndex int         `json:"content_index"`
	ErrorDetail  ErrorDetail `json:"error"`
}

func (*InputAudioTranscriptionFailedEvent) EventType() string {
	return TypeConversationItemInputAudioTranscriptionFailed
}

type InputAudioBufferCommittedEvent struct {
	serverEventBase
	PreviousItemID string `json:"previous_item_id,omitempty"`
	ItemID         string `json:"item_id"`
}

func (*InputAudioBufferCommittedEvent) EventType() string { return TypeInputAudioBufferCommitted }

type InputAudioBufferClearedEvent struct {
	serverEventBase
}

func (*InputAudioBufferClearedEvent) EventType() string { return TypeInputAudioBufferCleared }

type SpeechStartedEvent struct {
	serverEventBase
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

func (*SpeechStartedEvent) EventType() string { return TypeInputAudioBufferSpeechStarted }

type SpeechStoppedEvent struct {
	serverEventBase
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func (*SpeechStoppedEvent) EventType() string { return TypeInputAudioBufferSpeechStopped }

type ResponseCreatedEvent struct {
	serverEventBase
	Response Response `json:"response"`
}

func (*ResponseCreatedEvent) EventType() string { return TypeResponseCreated }

type ResponseDoneEvent struct {
	serverEventBase
	Response Response `json:"response"`
}

func (*ResponseDoneEvent) EventType() string { return TypeResponseDone }

type ResponseOutputItemAddedEvent struct {
	serverEventBase
	ResponseID  string           `json:"response_id"`
	OutputIndex int              `json:"output_index"`
	Item        ConversationItem `json:"item"`
}

func (*ResponseOutputItemAddedEvent) EventType() string { return TypeResponseOutputItemAdded }

type ResponseOutputItemDoneEvent struct {
	serverEventBase
	ResponseID  string           `json:"response_id"`
	OutputIndex int              `json:"output_index"`
	Item        ConversationItem `json:"item"`
}

func (*ResponseOutputItemDoneEvent) EventType() string { return TypeResponseOutputItemDone }

type ResponseContentPartAddedEvent struct {
	serverEventBase
	ResponseID   string      `json:"response_id"`
	ItemID       string      `json:"item_id"`
	OutputIndex  int         `json:"output_index"`
	ContentIndex int         `json:"content_index"`
	Part         ContentPart `json:"part"`
}

func (*ResponseContentPartAddedEvent) EventType() string { return TypeResponseContentPartAdded }

type ResponseContentPartDoneEvent struct {
	serverEventBase
	ResponseID   string      `json:"response_id"`
	ItemID       string      `json:"item_id"`
	OutputIndex  int         `json:"output_index"`
	ContentIndex int         `json:"content_index"`
	Part         ContentPart `json:"part"`
}

func (*ResponseContentPartDoneEvent) EventType() string { return TypeResponseContentPartDone }

type ResponseTextDeltaEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func (*ResponseTextDeltaEvent) EventType() string { return TypeResponseTextDelta }

type ResponseTextDoneEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

func (*ResponseTextDoneEvent) EventType() string { return TypeResponseTextDone }

type ResponseAudioDeltaEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"` // base64-encoded PCM16
}

func (*ResponseAudioDeltaEvent) EventType() string { return TypeResponseAudioDelta }

type ResponseAudioDoneEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
}

func (*ResponseAudioDoneEvent) EventType() string { return TypeResponseAudioDone }

type ResponseAudioTranscriptDeltaEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func (*ResponseAudioTranscriptDeltaEvent) EventType() string { return TypeResponseAudioTranscriptDelta }

type ResponseAudioTranscriptDoneEvent struct {
	serverEventBase
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

func (*ResponseAudioTranscriptDoneEvent) EventType() string { return TypeResponseAudioTranscriptDone }

type ResponseFunctionCallArgumentsDeltaEvent struct {
	serverEventBase
	ResponseID  string `json:"response_id"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	CallID      string `json:"call_id"`
	Delta       string `json:"delta"`
}

func (*ResponseFunctionCallArgumentsDeltaEvent) EventType() string {
	return TypeResponseFunctionCallArgumentsDelta
}

type ResponseFunctionCallArgumentsDoneEvent struct {
	serverEventBase
	ResponseID  string `json:"response_id"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	CallID      string `json:"call_id"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
}

func (*ResponseFunctionCallArgumentsDoneEvent) EventType() string {
	return TypeResponseFunctionCallArgumentsDone
}

type RateLimitsUpdatedEvent struct {
	serverEventBase
	RateLimits []RateLimit `json:"rate_limits"`
}

func (*RateLimitsUpdatedEvent) EventType() string { return TypeRateLimitsUpdated }

func unmarshalServerEvent[T ServerEvent](data []byte) (T, error) {
	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("decode %s: %w", t.EventType(), err)
	}
	return t, nil
}

// UnmarshalServerEvent decodes a raw frame into the server event variant
// selected by its type discriminator. A frame with an unrecognized type is
// an error: the session layer relies on recognizing every completion and
// error event, so silently dropping frames is not an option.
func UnmarshalServerEvent(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch envelope.Type {
	case TypeError:
		return unmarshalServerEvent[*ErrorEvent](data)
	case TypeSessionCreated:
		return unmarshalServerEvent[*SessionCreatedEvent](data)
	case TypeSessionUpdated:
		return unmarshalServerEvent[*SessionUpdatedEvent](data)
	case TypeConversationItemCreated:
		return unmarshalServerEvent[*ConversationItemCreatedEvent](data)
	case TypeConversationItemTruncated:
		return unmarshalServerEvent[*ConversationItemTruncatedEvent](data)
	case TypeConversationItemDeleted:
		return unmarshalServerEvent[*ConversationItemDeletedEvent](data)
	case TypeConversationItemInputAudioTranscriptionCompleted:
		return unmarshalServerEvent[*InputAudioTranscriptionCompletedEvent](data)
	case TypeConversationItemInputAudioTranscriptionFailed:
		return unmarshalServerEvent[*InputAudioTranscriptionFailedEvent](data)
	case TypeInputAudioBufferCommitted:
		return unmarshalServerEvent[*InputAudioBufferCommittedEvent](data)
	case TypeInputAudioBufferCleared:
		return unmarshalServerEvent[*InputAudioBufferClearedEvent](data)
	case TypeInputAudioBufferSpeechStarted:
		return unmarshalServerEvent[*SpeechStartedEvent](data)
	case TypeInputAudioBufferSpeechStopped:
		return unmarshalServerEvent[*SpeechStoppedEvent](data)
	case TypeResponseCreated:
		return unmarshalServerEvent[*ResponseCreatedEvent](data)
	case TypeResponseDone:
		return unmarshalServerEvent[*ResponseDoneEvent](data)
	case TypeResponseOutputItemAdded:
		return unmarshalServerEvent[*ResponseOutputItemAddedEvent](data)
	case TypeResponseOutputItemDone:
		return unmarshalServerEvent[*ResponseOutputItemDoneEvent](data)
	case TypeResponseContentPartAdded:
		return unmarshalServerEvent[*ResponseContentPartAddedEvent](data)
	case TypeResponseContentPartDone:
		return unmarshalServerEvent[*ResponseContentPartDoneEvent](data)
	case TypeResponseTextDelta:
		return unmarshalServerEvent[*ResponseTextDeltaEvent](data)
	case TypeResponseTextDone:
		return unmarshalServerEvent[*ResponseTextDoneEvent](data)
	case TypeResponseAudioDelta:
		return unmarshalServerEvent[*ResponseAudioDeltaEvent](data)
	case TypeResponseAudioDone:
		return unmarshalServerEvent[*ResponseAudioDoneEvent](data)
	case TypeResponseAudioTranscriptDelta:
		return unmarshalServerEvent[*ResponseAudioTranscriptDeltaEvent](data)
	case TypeResponseAudioTranscriptDone:
		return unmarshalServerEvent[*ResponseAudioTranscriptDoneEvent](data)
	case TypeResponseFunctionCallArgumentsDelta:
		return unmarshalServerEvent[*ResponseFunctionCallArgumentsDeltaEvent](data)
	case TypeResponseFunctionCallArgumentsDone:
		return unmarshalServerEvent[*ResponseFunctionCallArgumentsDoneEvent](data)
	case TypeRateLimitsUpdated:
		return unmarshalServerEvent[*RateLimitsUpdatedEvent](data)
	default:
		return nil, fmt.Errorf("unknown server event type: %q", envelope.Type)
	}
}
