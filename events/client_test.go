package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientEventsCarryTypeAndEventID(t *testing.T) {
	evts := []ClientEvent{
		NewSessionUpdateEvent(SessionConfig{}),
		NewInputAudioBufferAppendEvent("UENNMTY="),
		NewInputAudioBufferCommitEvent(),
		NewInputAudioBufferClearEvent(),
		NewConversationItemCreateEvent(ConversationItem{Type: "message"}),
		NewConversationItemTruncateEvent("item_1", 0, 1500),
		NewConversationItemDeleteEvent("item_1"),
		NewResponseCreateEvent(ResponseCreatePayload{}),
		NewResponseCancelEvent("resp_1"),
	}

	seen := map[string]bool{}
	for _, evt := range evts {
		data, err := json.Marshal(evt)
		require.NoError(t, err)

		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		require.Equal(t, evt.EventType(), frame["type"])
		require.Equal(t, evt.ID(), frame["event_id"])
		require.NotEmpty(t, evt.ID())
		require.False(t, seen[evt.ID()], "event ids must be unique")
		seen[evt.ID()] = true
	}
}

func TestSessionConfigMarshal(t *testing.T) {
	t.Run("zero tool_choice omitted", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{Voice: VoiceCoral})
		require.NoError(t, err)
		require.NotContains(t, string(data), "tool_choice")
		require.NotContains(t, string(data), "max_response_output_tokens")
	})

	t.Run("tool_choice mode", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{ToolChoice: ToolChoiceMode(ToolChoiceAuto)})
		require.NoError(t, err)
		require.Contains(t, string(data), `"tool_choice":"auto"`)
	})

	t.Run("tool_choice function", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{ToolChoice: ToolChoiceFunction("get_weather")})
		require.NoError(t, err)
		require.Contains(t, string(data), `"tool_choice":{"name":"get_weather","type":"function"}`)
	})

	t.Run("max tokens limit", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{MaxResponseOutputTokens: MaxTokens(4096)})
		require.NoError(t, err)
		require.Contains(t, string(data), `"max_response_output_tokens":4096`)
	})

	t.Run("max tokens inf", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{MaxResponseOutputTokens: MaxTokensInf()})
		require.NoError(t, err)
		require.Contains(t, string(data), `"max_response_output_tokens":"inf"`)
	})

	t.Run("turn detection disabled is null", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{TurnDetection: TurnDetectionDisabled})
		require.NoError(t, err)
		require.Contains(t, string(data), `"turn_detection":null`)
	})

	t.Run("turn detection server_vad", func(t *testing.T) {
		data, err := json.Marshal(SessionConfig{TurnDetection: &TurnDetection{
			Type:           "server_vad",
			Threshold:      0.6,
			CreateResponse: true,
		}})
		require.NoError(t, err)
		require.Contains(t, string(data), `"type":"server_vad"`)
		require.Contains(t, string(data), `"create_response":true`)
	})
}

func TestToolChoiceUnmarshal(t *testing.T) {
	var tc ToolChoice
	require.NoError(t, json.Unmarshal([]byte(`"required"`), &tc))
	require.Equal(t, ToolChoiceRequired, tc.Mode)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"function","name":"lookup"}`), &tc))
	require.Empty(t, tc.Mode)
	require.Equal(t, "lookup", tc.Function)

	require.Error(t, json.Unmarshal([]byte(`42`), &tc))
}

func TestMaxOutputTokensUnmarshal(t *testing.T) {
	var m MaxOutputTokens
	require.NoError(t, json.Unmarshal([]byte(`1024`), &m))
	require.Equal(t, MaxTokens(1024), m)

	require.NoError(t, json.Unmarshal([]byte(`"inf"`), &m))
	require.True(t, m.Infinite)

	require.Error(t, json.Unmarshal([]byte(`"lots"`), &m))
}

func TestIsTerminalStatus(t *testing.T) {
	for _, status := range []string{
		ResponseStatusCompleted,
		ResponseStatusCancelled,
		ResponseStatusFailed,
		ResponseStatusIncomplete,
	} {
		require.True(t, IsTerminalStatus(status), status)
	}
	require.False(t, IsTerminalStatus(ResponseStatusInProgress))
	require.False(t, IsTerminalStatus(""))
}
