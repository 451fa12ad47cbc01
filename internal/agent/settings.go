package agent

import (
	"fmt"

	"github.com/opendispatch/triage-gateway/internal/config"
)

// DefaultGreeting is spoken when no initial transcript is available or the
// reasoning service fails to produce a personalized greeting.
const DefaultGreeting = "Hello, how can I help with your emergency?"

// agentKeyterms biases the backend's listening model toward dispatch vocabulary.
var agentKeyterms = []string{"emergency", "help", "police", "fire", "ambulance", "urgent"}

const thinkPromptTemplate = `You are a helpful emergency dispatch assistant. The caller described: %q

Guidelines:
- Speak naturally and kindly
- Keep responses brief and clear
- Reference their situation when helpful
- Provide specific, actionable guidance
- Remember conversation details
- If they mention life-threatening emergencies, immediately tell them to hang up and call 911 directly

Always respond with plain text only - no formatting, asterisks, or special characters. Speak as if talking directly to someone on the phone.`

// SettingsMessage is the one-time configuration message sent to the agent
// backend before any audio flows.
type SettingsMessage struct {
	Type  string        `json:"type"`
	Audio AudioSettings `json:"audio"`
	Agent AgentSettings `json:"agent"`
}

// AudioSettings describes codec parameters for both stream directions.
type AudioSettings struct {
	Input  AudioFormat `json:"input"`
	Output AudioFormat `json:"output"`
}

// AudioFormat is one direction's codec configuration.
type AudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
}

// AgentSettings selects models and supplies the conversation context.
type AgentSettings struct {
	Language string         `json:"language"`
	Context  []Turn         `json:"context,omitempty"`
	Listen   ListenSettings `json:"listen"`
	Think    ThinkSettings  `json:"think"`
	Speak    SpeakSettings  `json:"speak"`
	Greeting string         `json:"greeting"`
}

// ListenSettings selects the speech-to-text provider.
type ListenSettings struct {
	Provider ListenProvider `json:"provider"`
}

// ListenProvider configures the listening model.
type ListenProvider struct {
	Type     string   `json:"type"`
	Model    string   `json:"model"`
	Keyterms []string `json:"keyterms,omitempty"`
}

// ThinkSettings selects the reasoning provider and its instruction prompt.
type ThinkSettings struct {
	Provider ThinkProvider `json:"provider"`
	Prompt   string        `json:"prompt"`
}

// ThinkProvider configures the thinking model.
type ThinkProvider struct {
	Type        string  `json:"type"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// SpeakSettings selects the speech synthesis provider.
type SpeakSettings struct {
	Provider SpeakProvider `json:"provider"`
}

// SpeakProvider configures the speaking voice.
type SpeakProvider struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

// buildSettings assembles the session configuration for one call: telephony
// codec parameters on both directions, the bounded conversation context, an
// instruction prompt embedding the initial transcript, and the greeting.
func buildSettings(cfg *config.Config, transcript, greeting string, context []Turn) SettingsMessage {
	described := transcript
	if described == "" {
		described = "No initial description provided"
	}

	return SettingsMessage{
		Type: "Settings",
		Audio: AudioSettings{
			Input:  AudioFormat{Encoding: "mulaw", SampleRate: 8000},
			Output: AudioFormat{Encoding: "mulaw", SampleRate: 8000, Container: "none"},
		},
		Agent: AgentSettings{
			Language: cfg.AgentLanguage,
			Context:  context,
			Listen: ListenSettings{
				Provider: ListenProvider{
					Type:     "deepgram",
					Model:    cfg.AgentListenModel,
					Keyterms: agentKeyterms,
				},
			},
			Think: ThinkSettings{
				Provider: ThinkProvider{
					Type:        "open_ai",
					Model:       cfg.AgentThinkModel,
					Temperature: 0.7,
				},
				Prompt: fmt.Sprintf(thinkPromptTemplate, described),
			},
			Speak: SpeakSettings{
				Provider: SpeakProvider{
					Type:  "deepgram",
					Model: cfg.AgentSpeakModel,
				},
			},
			Greeting: greeting,
		},
	}
}

// Backend control event types the bridge reacts to; everything else is
// ignored for forward compatibility.
const (
	eventUserStartedSpeaking = "UserStartedSpeaking"
	eventConversationText    = "ConversationText"
)

// agentEvent is a structured control event from the backend.
type agentEvent struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}
