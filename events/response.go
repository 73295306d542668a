package events

import "fmt"

// ConversationItem is a single entry in the conversation: a message, a
// function call, or a function call output.
type ConversationItem struct {
	ID        string        `json:"id,omitempty"`
	Object    string        `json:"object,omitempty"`
	Type      string        `json:"type,omitempty"` // "message", "function_call", "function_call_output"
	Status    string        `json:"status,omitempty"`
	Role      string        `json:"role,omitempty"` // "user", "assistant", "system"
	Content   []ContentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

// ContentPart is one part of a message's content.
type ContentPart struct {
	Type       string `json:"type,omitempty"` // "input_text", "input_audio", "text", "audio"
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"` // base64 encoded
	Transcript string `json:"transcript,omitempty"`
}

// Response is the model's reply to a response.create event, built up
// incrementally by response.* server events.
type Response struct {
	ID            string             `json:"id,omitempty"`
	Object        string             `json:"object,omitempty"`
	Status        string             `json:"status,omitempty"`
	StatusDetails *StatusDetails     `json:"status_details,omitempty"`
	Output        []ConversationItem `json:"output,omitempty"`
	Usage         *Usage             `json:"usage,omitempty"`
}

// StatusDetails explains a terminal response status.
type StatusDetails struct {
	Type   string       `json:"type,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// Usage holds token accounting for a finished response.
type Usage struct {
	TotalTokens        int           `json:"total_tokens,omitempty"`
	InputTokens        int           `json:"input_tokens,omitempty"`
	OutputTokens       int           `json:"output_tokens,omitempty"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitempty"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitempty"`
}

type TokenDetails struct {
	CachedTokens int `json:"cached_tokens,omitempty"`
	TextTokens   int `json:"text_tokens,omitempty"`
	AudioTokens  int `json:"audio_tokens,omitempty"`
}

// RateLimit is one entry of a rate_limits.updated event.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

// ErrorDetail holds the details of a server-reported error. EventID, when
// set, references the client event that caused the error.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ResponseCreatePayload is the inline configuration of a response.create
// event. Zero-valued fields inherit the session configuration.
type ResponseCreatePayload struct {
	Modalities        []string           `json:"modalities,omitempty"`
	Instructions      string             `json:"instructions,omitempty"`
	Voice             string             `json:"voice,omitempty"`
	OutputAudioFormat AudioFormat        `json:"output_audio_format,omitempty"`
	Tools             []SessionTool      `json:"tools,omitempty"`
	ToolChoice        ToolChoice         `json:"tool_choice,omitzero"`
	Temperature       float64            `json:"temperature,omitempty"`
	MaxOutputTokens   MaxOutputTokens    `json:"max_output_tokens,omitzero"`
	Conversation      string             `json:"conversation,omitempty"` // "auto" or "none"
	Input             []ConversationItem `json:"input,omitempty"`
}
