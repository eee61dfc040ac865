package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 60 * time.Second

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint and
// implements both oracle interfaces.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an oracle backed by an OpenAI-compatible API. An empty
// baseURL uses the official endpoint; a zero timeout uses the default.
func NewOpenAI(baseURL, apiKey, modelName string, timeout time.Duration) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIClient{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Ping verifies the endpoint is reachable.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("oracle health check: %w", err)
	}
	return nil
}

// MatchConcepts implements ConceptOracle.
func (c *OpenAIClient) MatchConcepts(ctx context.Context, answerText string, concepts []string) (*ConceptPartition, error) {
	raw, err := c.complete(ctx, buildMatchPrompt(answerText, concepts), 0.1)
	if err != nil {
		return nil, fmt.Errorf("concept matching call: %w", err)
	}
	slog.Debug("concept oracle response", "raw", raw)

	var partition ConceptPartition
	if err := json.Unmarshal([]byte(extractJSON(raw)), &partition); err != nil {
		return nil, fmt.Errorf("parse concept matching response: %w (raw: %s)", err, raw)
	}
	return &partition, nil
}

// Synthesize implements SynthesisOracle.
func (c *OpenAIClient) Synthesize(ctx context.Context, responses []ResponseSummary) (*Synthesis, error) {
	raw, err := c.complete(ctx, buildSynthesisPrompt(responses), 0.3)
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}
	slog.Debug("synthesis oracle response", "raw", raw)

	var synthesis Synthesis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &synthesis); err != nil {
		return nil, fmt.Errorf("parse synthesis response: %w (raw: %s)", err, raw)
	}
	return &synthesis, nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
