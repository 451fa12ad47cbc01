package reasoning

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opendispatch/triage-gateway/internal/observability"
)

const criticalityPrompt = `You are a 911 switch operator receiving calls immediately after a large-scale disaster event. Resources are severely limited and you must prioritize which calls need immediate response versus those that can wait.

Your ONLY task is to assess the criticality level of each call and respond with EXACTLY ONE WORD: LOW, MEDIUM, HIGH, or CRITICAL

Classification criteria:

CRITICAL - Immediate life-threatening emergency requiring instant response:
  - Confirmed active fire with people trapped
  - Building collapse with victims underneath
  - People not breathing, unconscious, or severe bleeding
  - Imminent explosions or hazardous material exposure
  - Multiple casualties confirmed

HIGH - Urgent and potentially life-threatening, needs rapid attention:
  - Spreading fires approaching occupied structures
  - Serious injuries with active bleeding
  - Downed power lines near people
  - Structural damage with potential collapse risk

MEDIUM - Distressing situation but no immediate confirmed danger:
  - Smell of smoke without visible fire
  - Welfare checks on missing neighbors
  - People trapped but currently safe
  - Uncertain threats or unconfirmed hazards

LOW - Minor issues, information requests, can wait:
  - Questions about evacuation centers or safe zones
  - General safety inquiries without specific threat
  - Property damage without immediate danger
  - Resource location requests (water, supplies)

When in doubt between two levels, consider: Is there confirmed immediate danger to life? If yes, escalate. If uncertain, choose the lower level.

Output ONLY the classification level, nothing else.`

// Criticality is the priority level assigned to a call.
type Criticality string

const (
	CriticalityLow      Criticality = "LOW"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityCritical Criticality = "CRITICAL"
)

// FallbackCriticality is assigned when the model fails or answers with an
// unknown level. Erring high keeps a degraded model from burying a real
// emergency.
const FallbackCriticality = CriticalityHigh

// Severity maps the level to a numeric rank for storage and sorting.
func (c Criticality) Severity() int {
	switch c {
	case CriticalityLow:
		return 1
	case CriticalityMedium:
		return 2
	case CriticalityHigh:
		return 3
	case CriticalityCritical:
		return 4
	}
	return FallbackCriticality.Severity()
}

// ParseCriticality normalizes a model answer into a known level.
func ParseCriticality(s string) (Criticality, bool) {
	switch Criticality(strings.ToUpper(strings.TrimSpace(s))) {
	case CriticalityLow:
		return CriticalityLow, true
	case CriticalityMedium:
		return CriticalityMedium, true
	case CriticalityHigh:
		return CriticalityHigh, true
	case CriticalityCritical:
		return CriticalityCritical, true
	}
	return "", false
}

// Criticality assesses the priority level of a call transcript.
func (c *Client) Criticality(ctx context.Context, transcript string) Criticality {
	answer, err := c.complete(ctx, "criticality", 0.5, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: criticalityPrompt},
		{Role: openai.ChatMessageRoleUser, Content: transcript},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Criticality assessment failed, using fallback level")
		observability.RecordCriticality(string(FallbackCriticality))
		return FallbackCriticality
	}

	level, ok := ParseCriticality(answer)
	if !ok {
		c.logger.Warn().Str("answer", answer).Msg("Unrecognized criticality level, using fallback")
		level = FallbackCriticality
	}

	observability.RecordCriticality(string(level))
	return level
}
