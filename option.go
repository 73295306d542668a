package realtime

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/voxline/realtime-go/events"
	"github.com/voxline/realtime-go/tool"
)

const (
	ApiKeyEnvVarNameShort = "OPENAI_KEY"
	ApiKeyEnvVarNameLong  = "OPENAI_API_KEY"

	// DefaultEndpoint is the direct API realtime endpoint.
	DefaultEndpoint = "wss://api.openai.com/v1/realtime"
)

type clientConfig struct {
	endpoint      string
	model         string
	deployment    string
	apiKey        string
	instruction   string
	language      string
	voice         string
	temperature   float64
	speed         float64
	modalities    []string
	maxTokens     events.MaxOutputTokens
	transcription *events.TranscriptionConfig
	turnDetection *events.TurnDetection
	sampleRate    int
	latencyMS     int
	eventTimeout  time.Duration
	logger        *slog.Logger
	tools         []events.SessionTool
	registry      *tool.Registry
}

func (c *clientConfig) latency() time.Duration {
	return time.Duration(c.latencyMS) * time.Millisecond
}

func (c *clientConfig) audio() bool {
	for _, m := range c.modalities {
		if m == events.ModalityAudio {
			return true
		}
	}
	return false
}

func (c *clientConfig) validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("missing api key")
	}
	if c.model == "" && c.deployment == "" {
		return fmt.Errorf("missing model or deployment")
	}
	return nil
}

// sessionConfig builds the initial session.update payload from the
// client configuration.
func (c *clientConfig) sessionConfig() events.SessionConfig {
	toolDefs := c.tools
	if c.registry != nil {
		toolDefs = append(c.registry.Definitions(), toolDefs...)
	}

	toolChoice := events.ToolChoiceMode(events.ToolChoiceNone)
	if len(toolDefs) > 0 {
		toolChoice = events.ToolChoiceMode(events.ToolChoiceAuto)
	}

	turnDetection := c.turnDetection
	if turnDetection == nil && c.audio() {
		turnDetection = &events.TurnDetection{
			Type:              "server_vad",
			CreateResponse:    true,
			InterruptResponse: true,
		}
	}

	// Gateway deployments pin the model server-side; only direct
	// connections restate it in the session configuration.
	model := c.model
	if c.deployment != "" {
		model = ""
	}

	return events.SessionConfig{
		Model:                   model,
		Modalities:              c.modalities,
		Instructions:            c.instruction,
		Voice:                   c.voice,
		InputAudioFormat:        events.AudioFormatPCM16,
		OutputAudioFormat:       events.AudioFormatPCM16,
		InputAudioTranscription: c.transcription,
		TurnDetection:           turnDetection,
		Tools:                   toolDefs,
		ToolChoice:              toolChoice,
		Temperature:             c.temperature,
		MaxResponseOutputTokens: c.maxTokens,
		Speed:                   c.speed,
	}
}

type Option func(*clientConfig)

// WithEndpoint points the client at a non-default realtime endpoint, e.g.
// a gateway in front of the API.
func WithEndpoint(endpoint string) Option {
	return func(config *clientConfig) {
		config.endpoint = endpoint
	}
}

// WithDeployment selects gateway mode: the connection URL carries
// ?deployment=<id> instead of ?model=<id>.
func WithDeployment(deployment string) Option {
	return func(config *clientConfig) {
		config.deployment = deployment
	}
}

func WithTools(tools ...events.SessionTool) Option {
	return func(config *clientConfig) {
		config.tools = tools
	}
}

// WithRegistry attaches a tool registry. Its definitions are advertised
// in the session configuration and completed function calls are invoked
// against it automatically.
func WithRegistry(r *tool.Registry) Option {
	return func(config *clientConfig) {
		config.registry = r
	}
}

func WithVoice(voice string) Option {
	return func(config *clientConfig) {
		config.voice = voice
	}
}

func WithSpeed(speed float64) Option {
	return func(config *clientConfig) {
		config.speed = speed
	}
}

func WithSampleRate(sr int) Option {
	return func(config *clientConfig) {
		config.sampleRate = sr
	}
}

// WithModalities selects the session modalities. Text-only sessions skip
// the audio plumbing entirely.
func WithModalities(modalities ...string) Option {
	return func(config *clientConfig) {
		config.modalities = modalities
	}
}

func WithTranscription(t *events.TranscriptionConfig) Option {
	return func(config *clientConfig) {
		config.transcription = t
	}
}

func WithTurnDetection(t *events.TurnDetection) Option {
	return func(config *clientConfig) {
		config.turnDetection = t
	}
}

func WithMaxOutputTokens(m events.MaxOutputTokens) Option {
	return func(config *clientConfig) {
		config.maxTokens = m
	}
}

// WithEventTimeout sets the per-call SendAndWait timeout for the session.
func WithEventTimeout(d time.Duration) Option {
	return func(config *clientConfig) {
		config.eventTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *clientConfig) {
		o.logger = logger
	}
}

func WithDefaultLogger() Option {
	return WithLogger(slog.Default())
}

func WithTemperature(temperature float64) Option {
	return func(o *clientConfig) {
		o.temperature = temperature
	}
}

func WithModel(model string) Option {
	return func(o *clientConfig) {
		o.model = model
	}
}

func WithKey(apiKey string) Option {
	return func(o *clientConfig) {
		o.apiKey = apiKey
	}
}

func WithEnvKey(vars ...string) Option {
	return func(o *clientConfig) {
		for _, envVarName := range vars {
			if k := os.Getenv(envVarName); k != "" {
				o.apiKey = k
				return
			}
		}
	}
}

func WithOptions(opts ...Option) Option {
	return func(o *clientConfig) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

func withDefaults() Option {
	return WithOptions(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithEndpoint(DefaultEndpoint),
		WithLanguage("en"),
		WithVoice(events.VoiceCoral),
		WithInstruction("You are a helpcenter agent and help the user."),
		WithTemperature(0.7),
		WithSpeed(1.0),
		WithModalities(events.ModalityText, events.ModalityAudio),
		WithSampleRate(wireSampleRate),
		WithLatency(200),
		WithEventTimeout(DefaultEventTimeout),
		WithModel("gpt-4o-realtime-preview-2025-06-03"),
		WithEnvKey(ApiKeyEnvVarNameShort, ApiKeyEnvVarNameLong),
	)
}

func WithLanguage(language string) Option {
	return func(o *clientConfig) {
		o.language = language
	}
}

func WithInstruction(instruction string) Option {
	return func(o *clientConfig) {
		o.instruction = instruction
	}
}

// WithLatency sets the audio chunking latency in milliseconds.
func WithLatency(latencyMS int) Option {
	return func(o *clientConfig) {
		o.latencyMS = latencyMS
	}
}
