// Package reasoning calls the Groq-hosted reasoning model over its
// OpenAI-compatible API for triage decisions: emergency classification,
// criticality assessment, call summaries, and personalized greetings.
package reasoning

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/opendispatch/triage-gateway/internal/config"
	"github.com/opendispatch/triage-gateway/internal/observability"
	"github.com/opendispatch/triage-gateway/internal/resilience"
)

const serviceName = "groq"

// ChatCompleter is the slice of the OpenAI-compatible client used by this
// package. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the reasoning model with retry and circuit breaker protection.
// All methods are safe for concurrent use.
type Client struct {
	completer ChatCompleter
	model     string
	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryConfig
	logger    zerolog.Logger
}

// NewClient creates a reasoning client for the configured Groq endpoint.
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	clientConfig.BaseURL = cfg.GroqBaseURL

	return NewClientWithCompleter(openai.NewClientWithConfig(clientConfig), cfg, logger)
}

// NewClientWithCompleter creates a reasoning client on top of an existing
// completer. Used by tests to substitute the model.
func NewClientWithCompleter(completer ChatCompleter, cfg *config.Config, logger zerolog.Logger) *Client {
	maxAttempts := cfg.RetryMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		completer: completer,
		model:     cfg.GroqModel,
		breaker: resilience.NewCircuitBreaker(
			serviceName,
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retry: &resilience.RetryConfig{
			MaxAttempts:       maxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: logger,
	}
}

// complete runs one chat completion under breaker and retry protection and
// returns the trimmed message content.
func (c *Client) complete(ctx context.Context, operation string, temperature float32, messages []openai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	var content string

	err := c.breaker.Call(func() error {
		return resilience.Retry(ctx, func() error {
			resp, err := c.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Temperature: temperature,
				TopP:        1,
				Messages:    messages,
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("no completion choices returned")
			}
			content = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		}, c.retry, resilience.IsRetryableNetworkError)
	})

	observability.ObserveReasoning(operation, time.Since(start), err == nil)
	observability.UpdateCircuitBreakerState(serviceName, int(c.breaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures(serviceName)
	}

	return content, err
}
