package realtime

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/voxline/realtime-go/events"
)

// Preset is a session configuration loaded from YAML, convenient for
// keeping named agent setups outside the binary.
type Preset struct {
	Model        string   `yaml:"model"`
	Deployment   string   `yaml:"deployment"`
	Endpoint     string   `yaml:"endpoint"`
	Voice        string   `yaml:"voice"`
	Instructions string   `yaml:"instructions"`
	Language     string   `yaml:"language"`
	Temperature  float64  `yaml:"temperature"`
	Speed        float64  `yaml:"speed"`
	Modalities   []string `yaml:"modalities"`

	// MaxOutputTokens is an integer or the literal "inf".
	MaxOutputTokens string `yaml:"max_output_tokens"`

	Transcription *struct {
		Model    string `yaml:"model"`
		Prompt   string `yaml:"prompt"`
		Language string `yaml:"language"`
	} `yaml:"transcription"`

	TurnDetection *struct {
		Type              string  `yaml:"type"` // "server_vad", "semantic_vad" or "none"
		Threshold         float64 `yaml:"threshold"`
		PrefixPaddingMs   int     `yaml:"prefix_padding_ms"`
		SilenceDurationMs int     `yaml:"silence_duration_ms"`
		Eagerness         string  `yaml:"eagerness"`
	} `yaml:"turn_detection"`
}

// LoadPreset reads and validates a preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes preset YAML.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.UnmarshalWithOptions(data, &p, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Preset) validate() error {
	for _, m := range p.Modalities {
		if m != events.ModalityText && m != events.ModalityAudio {
			return fmt.Errorf("preset: unknown modality %q", m)
		}
	}
	if p.MaxOutputTokens != "" {
		if _, err := p.maxTokens(); err != nil {
			return err
		}
	}
	if td := p.TurnDetection; td != nil {
		switch td.Type {
		case "server_vad", "semantic_vad", "none", "":
		default:
			return fmt.Errorf("preset: unknown turn_detection type %q", td.Type)
		}
	}
	return nil
}

func (p *Preset) maxTokens() (events.MaxOutputTokens, error) {
	if p.MaxOutputTokens == "inf" {
		return events.MaxTokensInf(), nil
	}
	var m events.MaxOutputTokens
	if err := m.UnmarshalJSON([]byte(p.MaxOutputTokens)); err != nil {
		return m, fmt.Errorf("preset: max_output_tokens must be an integer or \"inf\": %w", err)
	}
	return m, nil
}

// Options maps the preset onto client options. Zero-valued fields keep
// their defaults.
func (p *Preset) Options() []Option {
	var opts []Option
	if p.Model != "" {
		opts = append(opts, WithModel(p.Model))
	}
	if p.Deployment != "" {
		opts = append(opts, WithDeployment(p.Deployment))
	}
	if p.Endpoint != "" {
		opts = append(opts, WithEndpoint(p.Endpoint))
	}
	if p.Voice != "" {
		opts = append(opts, WithVoice(p.Voice))
	}
	if p.Instructions != "" {
		opts = append(opts, WithInstruction(p.Instructions))
	}
	if p.Language != "" {
		opts = append(opts, WithLanguage(p.Language))
	}
	if p.Temperature != 0 {
		opts = append(opts, WithTemperature(p.Temperature))
	}
	if p.Speed != 0 {
		opts = append(opts, WithSpeed(p.Speed))
	}
	if len(p.Modalities) > 0 {
		opts = append(opts, WithModalities(p.Modalities...))
	}
	if p.MaxOutputTokens != "" {
		m, err := p.maxTokens()
		if err == nil {
			opts = append(opts, WithMaxOutputTokens(m))
		}
	}
	if p.Transcription != nil {
		opts = append(opts, WithTranscription(&events.TranscriptionConfig{
			Model:    p.Transcription.Model,
			Prompt:   p.Transcription.Prompt,
			Language: p.Transcription.Language,
		}))
	}
	if td := p.TurnDetection; td != nil {
		if td.Type == "none" {
			opts = append(opts, WithTurnDetection(events.TurnDetectionDisabled))
		} else if td.Type != "" {
			opts = append(opts, WithTurnDetection(&events.TurnDetection{
				Type:              td.Type,
				Threshold:         td.Threshold,
				PrefixPaddingMs:   td.PrefixPaddingMs,
				SilenceDurationMs: td.SilenceDurationMs,
				CreateResponse:    true,
				InterruptResponse: true,
				Eagerness:         td.Eagerness,
			}))
		}
	}
	return opts
}
