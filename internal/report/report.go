// Package report folds a session's scored responses into the final
// interview report, delegating the qualitative synthesis to an oracle.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hireview/hireview/internal/model"
	"github.com/hireview/hireview/internal/oracle"
)

var (
	// ErrInsufficientData means aggregation was attempted for a session
	// with no scored responses.
	ErrInsufficientData = errors.New("cannot generate a report with no responses")

	// ErrReportGeneration means the synthesis oracle failed. Aggregation
	// is idempotent given the same inputs, so callers may simply retry.
	ErrReportGeneration = errors.New("report generation failed")
)

// Aggregator builds interview reports.
type Aggregator struct {
	oracle oracle.SynthesisOracle
}

// New creates an Aggregator using the given synthesis oracle.
func New(o oracle.SynthesisOracle) *Aggregator {
	return &Aggregator{oracle: o}
}

// Aggregate produces the report for an ordered, complete sequence of a
// session's response scores. The overall score is the unweighted arithmetic
// mean of the final scores. The oracle sees only a (score, feedback)
// projection; transcripts stay out of the synthesis request. Proctoring
// metadata is merged verbatim.
func (a *Aggregator) Aggregate(ctx context.Context, responses []model.ResponseScore, meta model.SessionMetadata) (model.InterviewReport, error) {
	if len(responses) == 0 {
		return model.InterviewReport{}, ErrInsufficientData
	}

	var sum float64
	summaries := make([]oracle.ResponseSummary, 0, len(responses))
	for _, r := range responses {
		sum += r.FinalScore
		summaries = append(summaries, oracle.ResponseSummary{
			Score:    r.FinalScore,
			Feedback: r.Feedback,
		})
	}
	overall := sum / float64(len(responses))

	synthesis, err := a.oracle.Synthesize(ctx, summaries)
	if err != nil {
		return model.InterviewReport{}, fmt.Errorf("%w: %v", ErrReportGeneration, err)
	}

	recommendation := model.Recommendation(synthesis.Recommendation)
	if !model.ValidRecommendation(recommendation) {
		// The one safe default in the pipeline: an invalid verdict from
		// the oracle degrades to "maybe", never to an error.
		slog.Warn("oracle returned invalid recommendation, defaulting",
			"got", synthesis.Recommendation, "default", model.RecommendMaybe)
		recommendation = model.RecommendMaybe
	}

	return model.InterviewReport{
		OverallScore:        overall,
		Recommendation:      recommendation,
		Strengths:           orEmpty(synthesis.Strengths),
		AreasForImprovement: orEmpty(synthesis.AreasForImprovement),
		SkillsDistribution:  clampSkills(synthesis.SkillsDistribution),
		WarningCount:        meta.WarningCount,
		Infractions:         meta.Infractions,
		TerminationReason:   meta.TerminationReason,
		GeneratedAt:         time.Now(),
	}, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// clampSkills keeps the oracle's free-text skill labels but forces every
// score into the 0..100 range.
func clampSkills(skills map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(skills))
	for label, score := range skills {
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		out[label] = score
	}
	return out
}
