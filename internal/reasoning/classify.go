package reasoning

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opendispatch/triage-gateway/internal/observability"
)

const classificationPrompt = `You are an emergency dispatch classifier for 911 operations during high-call-volume incidents.

Your job is to classify incoming calls into two categories:
1. EMERGENCY: Life-threatening situations requiring immediate human dispatch
2. NON_EMERGENCY: General inquiries, information requests, or non-critical situations

EMERGENCY indicators include:
- Life-threatening situations (heart attack, stroke, severe injury)
- Active crimes in progress (robbery, assault, domestic violence)
- Fires, explosions, or hazardous material incidents
- Medical emergencies requiring immediate attention
- Threats to safety or security
- Requests for police, fire, or ambulance with urgency

NON_EMERGENCY indicators include:
- General information requests
- Non-urgent medical questions
- Status updates or inquiries
- Administrative questions
- Non-critical complaints
- General safety questions

Respond with ONLY one word: "EMERGENCY" or "NON_EMERGENCY"`

// Classification labels.
const (
	LabelEmergency    = "EMERGENCY"
	LabelNonEmergency = "NON_EMERGENCY"
)

// Classification is the triage decision for a caller's initial description.
type Classification struct {
	IsEmergency bool
	Label       string
	Confidence  string // "high" when the model answered with a known label
}

// Classify decides whether a call needs human dispatch. Any failure is
// treated as an emergency so an outage can never downgrade a real one.
func (c *Client) Classify(ctx context.Context, transcript string) Classification {
	label, err := c.complete(ctx, "classify", 0, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: classificationPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Caller says: " + transcript},
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Classification failed, treating call as emergency")
		result := Classification{IsEmergency: true, Label: LabelEmergency, Confidence: "low"}
		observability.RecordClassification(result.IsEmergency)
		return result
	}

	var result Classification
	switch strings.ToUpper(label) {
	case LabelEmergency:
		result = Classification{IsEmergency: true, Label: LabelEmergency, Confidence: "high"}
	case LabelNonEmergency:
		result = Classification{IsEmergency: false, Label: LabelNonEmergency, Confidence: "high"}
	default:
		c.logger.Warn().Str("label", label).Msg("Unrecognized classification label, treating call as emergency")
		result = Classification{IsEmergency: true, Label: LabelEmergency, Confidence: "low"}
	}

	observability.RecordClassification(result.IsEmergency)
	return result
}
