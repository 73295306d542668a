package realtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxline/realtime-go/events"
)

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset([]byte(`
model: gpt-4o-realtime-preview-2025-06-03
voice: ash
instructions: You are a terse assistant.
temperature: 0.4
modalities: [text, audio]
max_output_tokens: "2048"
transcription:
  model: whisper-1
  language: de
turn_detection:
  type: server_vad
  threshold: 0.6
  silence_duration_ms: 700
`))
	require.NoError(t, err)
	require.Equal(t, "ash", p.Voice)
	require.Equal(t, "whisper-1", p.Transcription.Model)

	config := &clientConfig{}
	WithOptions(withDefaults(), WithKey("k"))(config)
	WithOptions(p.Options()...)(config)

	require.Equal(t, 0.4, config.temperature)
	require.Equal(t, events.MaxTokens(2048), config.maxTokens)
	require.Equal(t, "de", config.transcription.Language)
	require.Equal(t, "server_vad", config.turnDetection.Type)
	require.Equal(t, 700, config.turnDetection.SilenceDurationMs)
}

func TestParsePresetInfTokens(t *testing.T) {
	p, err := ParsePreset([]byte(`max_output_tokens: inf`))
	require.NoError(t, err)

	config := &clientConfig{}
	WithOptions(p.Options()...)(config)
	require.True(t, config.maxTokens.Infinite)
}

func TestParsePresetTurnDetectionNone(t *testing.T) {
	p, err := ParsePreset([]byte("turn_detection:\n  type: none\n"))
	require.NoError(t, err)

	config := &clientConfig{}
	WithOptions(p.Options()...)(config)
	require.Same(t, events.TurnDetectionDisabled, config.turnDetection)
}

func TestParsePresetRejectsBadValues(t *testing.T) {
	_, err := ParsePreset([]byte(`modalities: [text, video]`))
	require.ErrorContains(t, err, "unknown modality")

	_, err = ParsePreset([]byte(`max_output_tokens: lots`))
	require.ErrorContains(t, err, "max_output_tokens")

	_, err = ParsePreset([]byte("turn_detection:\n  type: psychic\n"))
	require.ErrorContains(t, err, "turn_detection")

	// Strict decoding surfaces typos instead of ignoring them.
	_, err = ParsePreset([]byte(`voise: ash`))
	require.Error(t, err)
}

func TestLoadPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("voice: verse\n"), 0o600))

	p, err := LoadPreset(path)
	require.NoError(t, err)
	require.Equal(t, events.VoiceVerse, p.Voice)

	_, err = LoadPreset(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
