package reasoning

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const greetingPrompt = `You are the opening voice of an emergency assistance line. The caller has already described their situation once.

Write ONE short greeting sentence that acknowledges what they reported and asks a single relevant follow-up question.

The greeting is spoken aloud by a voice synthesizer: use plain conversational words, no formatting characters, no lists, and keep it under 25 words.`

// Greeting generates a personalized opening line for the voice agent from the
// caller's initial description. The caller of this method decides the
// fallback; a failure here never reaches the phone line.
func (c *Client) Greeting(ctx context.Context, transcript string) (string, error) {
	greeting, err := c.complete(ctx, "greeting", 0.7, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: greetingPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Caller's initial description: " + transcript},
	})
	if err != nil {
		return "", fmt.Errorf("generate greeting: %w", err)
	}
	return greeting, nil
}
