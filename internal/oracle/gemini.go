package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements both oracle interfaces on top of the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini-backed oracle.
func NewGemini(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &GeminiClient{client: client, model: modelName, timeout: timeout}, nil
}

// MatchConcepts implements ConceptOracle.
func (g *GeminiClient) MatchConcepts(ctx context.Context, answerText string, concepts []string) (*ConceptPartition, error) {
	raw, err := g.generate(ctx, buildMatchPrompt(answerText, concepts))
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
func (g *GeminiClient) Synthesize(ctx context.Context, responses []ResponseSummary) (*Synthesis, error) {
	raw, err := g.generate(ctx, buildSynthesisPrompt(responses))
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

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text)
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return out, nil
}
