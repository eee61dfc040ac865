// Package score fuses concept coverage and lexical similarity into the
// per-response score record.
package score

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hireview/hireview/internal/match"
	"github.com/hireview/hireview/internal/model"
	"github.com/hireview/hireview/internal/similarity"
)

// Scorer turns a (transcript, question) pair into a ResponseScore.
type Scorer struct {
	matcher *match.Matcher
	cfg     model.EngineConfig
}

// New creates a Scorer. The config weights must sum to 1.
func New(matcher *match.Matcher, cfg model.EngineConfig) *Scorer {
	return &Scorer{matcher: matcher, cfg: cfg}
}

// Score evaluates a transcript against a question. Keyword coverage is the
// dominant signal; lexical similarity to the ideal answer smooths it. All
// scores are on the 0..100 scale; rounding is left to display layers.
//
// If concept matching fails the whole operation fails — no partial or zero
// score is ever produced for an oracle outage. Callers should treat
// match.ErrScoringUnavailable as transient and retryable.
func (s *Scorer) Score(ctx context.Context, transcript string, question model.Question) (model.ResponseScore, error) {
	mentioned, missed, err := s.matcher.Match(ctx, transcript, question.Keywords)
	if err != nil {
		return model.ResponseScore{}, fmt.Errorf("score response: %w", err)
	}

	// max(1, ...) guards a keyword-less question; the question generator
	// should never produce one, but it must not crash scoring.
	keywordDecimal := float64(len(mentioned)) / float64(max(1, len(question.Keywords)))
	similarityDecimal := similarity.Dice(transcript, question.IdealAnswer)

	finalDecimal := keywordDecimal*s.cfg.KeywordWeight + similarityDecimal*s.cfg.SimilarityWeight

	keywordScore := keywordDecimal * 100
	similarityScore := similarityDecimal * 100
	finalScore := finalDecimal * 100

	return model.ResponseScore{
		QuestionID:        question.ID,
		MentionedConcepts: mentioned,
		MissedConcepts:    missed,
		KeywordScore:      keywordScore,
		SimilarityScore:   similarityScore,
		FinalScore:        finalScore,
		IsCorrect:         finalScore >= s.cfg.CorrectThreshold,
		Transcript:        transcript,
		ReferenceAnswer:   question.IdealAnswer,
		Feedback:          buildFeedback(mentioned, missed),
		CreatedAt:         time.Now(),
	}, nil
}

func buildFeedback(mentioned, missed []string) string {
	return fmt.Sprintf("Mentioned concepts: %s. Missed concepts: %s.",
		joinConcepts(mentioned), joinConcepts(missed))
}

func joinConcepts(concepts []string) string {
	if len(concepts) == 0 {
		return "None"
	}
	return strings.Join(concepts, ", ")
}
