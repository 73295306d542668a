package events

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type AudioFormat string

const (
	AudioFormatPCM16    AudioFormat = "pcm16"
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatG711ALaw AudioFormat = "g711_alaw"
)

// Voices for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// SessionConfig is the payload of a session.update event and the desired
// session state sent during the handshake.
type SessionConfig struct {
	Model                   string               `json:"model,omitempty"`
	Modalities              []string             `json:"modalities,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        AudioFormat          `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat          `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
	Tools                   []SessionTool        `json:"tools,omitempty"`
	ToolChoice              ToolChoice           `json:"tool_choice,omitzero"`
	Temperature             float64              `json:"temperature,omitempty"`
	MaxResponseOutputTokens MaxOutputTokens      `json:"max_response_output_tokens,omitzero"`
	Speed                   float64              `json:"speed,omitempty"`
}

// TranscriptionConfig enables transcription of user input audio.
type TranscriptionConfig struct {
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Language string `json:"language,omitempty"`
}

// TurnDetection holds the VAD configuration.
//
// A nil pointer keeps the server's current setting. Use
// TurnDetectionDisabled to explicitly switch the session to manual turn
// taking ("turn_detection": null on the wire).
type TurnDetection struct {
	Type              string  `json:"type,omitempty"` // "server_vad" or "semantic_vad"
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response,omitempty"`
	InterruptResponse bool    `json:"interrupt_response,omitempty"`
	Eagerness         string  `json:"eagerness,omitempty"` // semantic_vad only

	disabled bool
}

// TurnDetectionDisabled marshals as an explicit null, disabling server VAD.
var TurnDetectionDisabled = &TurnDetection{disabled: true}

func (t *TurnDetection) MarshalJSON() ([]byte, error) {
	if t.disabled {
		return []byte("null"), nil
	}
	type alias TurnDetection
	return json.Marshal((*alias)(t))
}

// SessionTool is a function tool definition as it appears in session and
// response configuration payloads.
type SessionTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolChoice is either one of the literal modes ("auto", "none",
// "required") or a reference to a specific function.
type ToolChoice struct {
	Mode     string
	Function string
}

const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

func ToolChoiceMode(mode string) ToolChoice     { return ToolChoice{Mode: mode} }
func ToolChoiceFunction(name string) ToolChoice { return ToolChoice{Function: name} }

func (c ToolChoice) IsZero() bool { return c.Mode == "" && c.Function == "" }

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	if c.Function != "" {
		return json.Marshal(map[string]any{
			"type": "function",
			"name": c.Function,
		})
	}
	if c.Mode == "" {
		return []byte(`""`), nil
	}
	return json.Marshal(c.Mode)
}

func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	var mode string
	if err := json.Unmarshal(data, &mode); err == nil {
		c.Mode = mode
		c.Function = ""
		return nil
	}
	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tool_choice: %w", err)
	}
	c.Mode = ""
	c.Function = obj.Name
	return nil
}

// MaxOutputTokens is an integer token limit, or unbounded. The wire value
// for unbounded is the literal string "inf".
type MaxOutputTokens struct {
	Limit    int
	Infinite bool
}

func MaxTokens(n int) MaxOutputTokens { return MaxOutputTokens{Limit: n} }
func MaxTokensInf() MaxOutputTokens   { return MaxOutputTokens{Infinite: true} }

func (m MaxOutputTokens) IsZero() bool { return !m.Infinite && m.Limit == 0 }

func (m MaxOutputTokens) MarshalJSON() ([]byte, error) {
	if m.Infinite {
		return []byte(`"inf"`), nil
	}
	return []byte(strconv.Itoa(m.Limit)), nil
}

func (m *MaxOutputTokens) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*m = MaxOutputTokens{Infinite: true}
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("max_response_output_tokens: %w", err)
	}
	*m = MaxOutputTokens{Limit: n}
	return nil
}

// SessionResource is the session state as reported by the server in
// session.created and session.updated events.
type SessionResource struct {
	ID                      string               `json:"id,omitempty"`
	Object                  string               `json:"object,omitempty"`
	Model                   string               `json:"model,omitempty"`
	ExpiresAt               int64                `json:"expires_at,omitempty"`
	Modalities              []string             `json:"modalities,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        AudioFormat          `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat          `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
	Tools                   []SessionTool        `json:"tools,omitempty"`
	ToolChoice              ToolChoice           `json:"tool_choice,omitzero"`
	Temperature             float64              `json:"temperature,omitempty"`
	MaxResponseOutputTokens MaxOutputTokens      `json:"max_response_output_tokens,omitzero"`
	Speed                   float64              `json:"speed,omitempty"`
}
