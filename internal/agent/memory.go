package agent

// DefaultMemoryWindow bounds the number of recorded turns included in the
// context sent to the agent backend.
const DefaultMemoryWindow = 10

// RoleCaller and RoleAssistant are the turn roles used on the wire.
const (
	RoleCaller    = "user"
	RoleAssistant = "assistant"
)

// Turn is a single utterance in the conversation. Immutable once recorded.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationMemory is an append-only log of turn-level utterances for one
// call. Reads are truncated to the most recent window entries; the stored log
// itself is never truncated. Owned by a single bridge and mutated only by its
// backend event loop.
type ConversationMemory struct {
	initialTranscript string
	window            int
	turns             []Turn
}

// NewConversationMemory creates a memory seeded with the call's initial
// transcript (may be empty). window caps the context slice returned by
// ContextWindow; non-positive values fall back to DefaultMemoryWindow.
func NewConversationMemory(initialTranscript string, window int) *ConversationMemory {
	if window <= 0 {
		window = DefaultMemoryWindow
	}
	return &ConversationMemory{
		initialTranscript: CleanVoiceText(initialTranscript),
		window:            window,
	}
}

// Record sanitizes content and appends a turn. Existing turns are never
// dropped or reordered.
func (m *ConversationMemory) Record(role, content string) {
	m.turns = append(m.turns, Turn{Role: role, Content: CleanVoiceText(content)})
}

// ContextWindow returns an optional leading synthetic caller turn carrying the
// initial transcript, followed by at most the last window recorded turns in
// order. The result is a copy; callers may not mutate stored turns through it.
func (m *ConversationMemory) ContextWindow() []Turn {
	out := make([]Turn, 0, m.window+1)
	if m.initialTranscript != "" {
		out = append(out, Turn{
			Role:    RoleCaller,
			Content: "Initial emergency description: " + m.initialTranscript,
		})
	}

	start := 0
	if len(m.turns) > m.window {
		start = len(m.turns) - m.window
	}
	return append(out, m.turns[start:]...)
}

// Len returns the total number of recorded turns.
func (m *ConversationMemory) Len() int {
	return len(m.turns)
}
