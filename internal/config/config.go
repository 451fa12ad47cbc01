package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the triage gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service (e.g. https://xxx.ngrok-free.dev when behind ngrok).
	// Twilio posts webhooks to https://<this-host>/webhook/voice and connects media
	// streams to wss://<this-host>/streams/twilio.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Deepgram Voice Agent configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	AgentURL         string `envconfig:"AGENT_URL" default:"wss://agent.deepgram.com/v1/agent/converse"`
	AgentListenModel string `envconfig:"AGENT_LISTEN_MODEL" default:"nova-3"`
	AgentThinkModel  string `envconfig:"AGENT_THINK_MODEL" default:"gpt-4o-mini"`
	AgentSpeakModel  string `envconfig:"AGENT_SPEAK_MODEL" default:"aura-2-thalia-en"`
	AgentLanguage    string `envconfig:"AGENT_LANGUAGE" default:"en"`

	// Groq reasoning model configuration (OpenAI-compatible API)
	GroqAPIKey  string `envconfig:"GROQ_API_KEY" required:"true"`
	GroqBaseURL string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GroqModel   string `envconfig:"GROQ_MODEL" default:"openai/gpt-oss-20b"`

	// Twilio configuration
	TwilioAuthToken       string `envconfig:"TWILIO_AUTH_TOKEN" default:""`
	ValidateWebhooks      bool   `envconfig:"VALIDATE_TWILIO_WEBHOOKS" default:"false"`
	DispatcherPhoneNumber string `envconfig:"EMERGENCY_DISPATCH_PHONE_NUMBER" default:""`
	GatherTimeoutSeconds  int    `envconfig:"GATHER_TIMEOUT_SECONDS" default:"15"`
	GatherSpeechTimeout   string `envconfig:"GATHER_SPEECH_TIMEOUT" default:"2"`
	GatherLanguage        string `envconfig:"GATHER_LANGUAGE" default:"en-US"`

	// Postgres call record store
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`

	// Audio framing configuration. Twilio sends 160-byte frames (20ms of
	// mulaw at 8kHz); frames are batched before forwarding to the agent.
	FrameBytes     int `envconfig:"FRAME_BYTES" default:"160"`
	FramesPerChunk int `envconfig:"FRAMES_PER_CHUNK" default:"20"`
	MemoryWindow   int `envconfig:"MEMORY_WINDOW" default:"10"`

	// Resilience configuration for reasoning model calls
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"2"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate required fields
	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	if cfg.FrameBytes <= 0 || cfg.FramesPerChunk <= 0 {
		return nil, fmt.Errorf("FRAME_BYTES and FRAMES_PER_CHUNK must be positive")
	}

	return &cfg, nil
}

// ChunkBytes returns the size of an audio chunk forwarded to the agent backend.
func (c *Config) ChunkBytes() int {
	return c.FrameBytes * c.FramesPerChunk
}
