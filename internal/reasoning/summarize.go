package reasoning

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const summaryPrompt = `You are a 911 dispatch assistant summarizing emergency calls for quick review by operators.

Your task is to create a concise 2-3 sentence summary of the call transcript that captures:
1. The nature of the emergency or request
2. Key details (location, injuries, hazards, etc.)
3. Any immediate action needed or concerns expressed

Be clear, factual, and concise. Focus on information that helps dispatchers quickly understand the situation.`

// Summarize produces a short operator-facing summary of the call. On failure
// the raw transcript is returned so the record is never empty.
func (c *Client) Summarize(ctx context.Context, transcript string) string {
	summary, err := c.complete(ctx, "summarize", 0.5, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
		{Role: openai.ChatMessageRoleUser, Content: transcript},
	})
	if err != nil || summary == "" {
		c.logger.Warn().Err(err).Msg("Summarization failed, storing raw transcript")
		return transcript
	}
	return summary
}
