// Package oracle defines the contract with the external language-understanding
// capability the scoring engine delegates semantic judgment to, plus the
// OpenAI-compatible and Gemini backends that implement it.
//
// Oracle output is untrusted: backends only guarantee syntactically valid
// JSON of the right shape. Semantic validation (the mentioned/missed
// partition, the recommendation enum) belongs to the callers.
package oracle

import (
	"context"
	"strings"
)

// ConceptPartition is the oracle's classification of a concept list against
// an answer. The raw response is kept for debug logging.
type ConceptPartition struct {
	Mentioned []string `json:"mentioned_concepts"`
	Missed    []string `json:"missed_concepts"`
}

// ResponseSummary is the stripped-down projection of a scored response sent
// to the synthesis oracle. Transcripts are deliberately omitted.
type ResponseSummary struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Synthesis is the holistic assessment returned for a full session.
// Recommendation is a plain string here; the report aggregator validates it
// against the closed enum. SkillsDistribution is an open mapping keyed by
// oracle-generated skill labels.
type Synthesis struct {
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areas_for_improvement"`
	Recommendation      string             `json:"recommendation"`
	SkillsDistribution  map[string]float64 `json:"skills_distribution"`
}

// ConceptOracle decides which concepts are semantically present in a piece
// of free text.
type ConceptOracle interface {
	MatchConcepts(ctx context.Context, answerText string, concepts []string) (*ConceptPartition, error)
}

// SynthesisOracle produces the qualitative session summary.
type SynthesisOracle interface {
	Synthesize(ctx context.Context, responses []ResponseSummary) (*Synthesis, error)
}

// extractJSON strips markdown code fences some models wrap around JSON
// output despite instructions not to.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
