package report

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/hireview/hireview/internal/model"
	"github.com/hireview/hireview/internal/oracle"
)

type stubOracle struct {
	synthesis     *oracle.Synthesis
	err           error
	lastSummaries []oracle.ResponseSummary
}

func (s *stubOracle) Synthesize(_ context.Context, summaries []oracle.ResponseSummary) (*oracle.Synthesis, error) {
	s.lastSummaries = summaries
	if s.err != nil {
		return nil, s.err
	}
	return s.synthesis, nil
}

func responsesWithScores(scores ...float64) []model.ResponseScore {
	var out []model.ResponseScore
	for i, s := range scores {
		out = append(out, model.ResponseScore{
			QuestionID: int64(i + 1),
			FinalScore: s,
			Feedback:   "feedback",
			Transcript: "the transcript must never reach the oracle",
		})
	}
	return out
}

func validSynthesis() *oracle.Synthesis {
	return &oracle.Synthesis{
		Strengths:           []string{"clear communication"},
		AreasForImprovement: []string{"database depth"},
		Recommendation:      "hire",
		SkillsDistribution:  map[string]float64{"JavaScript": 80},
	}
}

func TestAggregateMean(t *testing.T) {
	stub := &stubOracle{synthesis: validSynthesis()}
	rep, err := New(stub).Aggregate(context.Background(), responsesWithScores(60, 70, 80), model.SessionMetadata{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if math.Abs(rep.OverallScore-70.0) > 1e-9 {
		t.Errorf("OverallScore = %v, want 70", rep.OverallScore)
	}
	if rep.Recommendation != model.RecommendHire {
		t.Errorf("Recommendation = %q, want hire", rep.Recommendation)
	}
	if !reflect.DeepEqual(rep.Strengths, []string{"clear communication"}) {
		t.Errorf("Strengths = %v", rep.Strengths)
	}
}

func TestAggregateEmptyResponses(t *testing.T) {
	_, err := New(&stubOracle{synthesis: validSynthesis()}).Aggregate(context.Background(), nil, model.SessionMetadata{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAggregateOracleFailure(t *testing.T) {
	stub := &stubOracle{err: errors.New("boom")}
	_, err := New(stub).Aggregate(context.Background(), responsesWithScores(50), model.SessionMetadata{})
	if !errors.Is(err, ErrReportGeneration) {
		t.Fatalf("expected ErrReportGeneration, got %v", err)
	}
}

func TestAggregateInvalidRecommendationDefaultsToMaybe(t *testing.T) {
	for _, bad := range []string{"", "definitely hire", "HIRE", "strong-hire"} {
		s := validSynthesis()
		s.Recommendation = bad
		rep, err := New(&stubOracle{synthesis: s}).Aggregate(context.Background(), responsesWithScores(80), model.SessionMetadata{})
		if err != nil {
			t.Fatalf("Aggregate(%q): %v", bad, err)
		}
		if rep.Recommendation != model.RecommendMaybe {
			t.Errorf("Recommendation for oracle value %q = %q, want maybe", bad, rep.Recommendation)
		}
	}
}

func TestAggregateProjectionStripsTranscripts(t *testing.T) {
	stub := &stubOracle{synthesis: validSynthesis()}
	responses := responsesWithScores(55, 65)

	if _, err := New(stub).Aggregate(context.Background(), responses, model.SessionMetadata{}); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(stub.lastSummaries) != 2 {
		t.Fatalf("oracle saw %d summaries, want 2", len(stub.lastSummaries))
	}
	for i, s := range stub.lastSummaries {
		if s.Score != responses[i].FinalScore {
			t.Errorf("summary %d score = %v, want %v", i, s.Score, responses[i].FinalScore)
		}
		if s.Feedback != "feedback" {
			t.Errorf("summary %d feedback = %q", i, s.Feedback)
		}
	}
}

func TestAggregateMergesProctoringMetadata(t *testing.T) {
	stub := &stubOracle{synthesis: validSynthesis()}
	meta := model.SessionMetadata{
		WarningCount: 3,
		Infractions: []model.ProctoringEvent{
			{EventType: "multiple_faces", Detail: "second face detected"},
		},
		TerminationReason: "warning limit exceeded",
	}

	rep, err := New(stub).Aggregate(context.Background(), responsesWithScores(90), meta)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if rep.WarningCount != 3 {
		t.Errorf("WarningCount = %d, want 3", rep.WarningCount)
	}
	if len(rep.Infractions) != 1 || rep.Infractions[0].EventType != "multiple_faces" {
		t.Errorf("Infractions = %v", rep.Infractions)
	}
	if rep.TerminationReason != "warning limit exceeded" {
		t.Errorf("TerminationReason = %q", rep.TerminationReason)
	}
}

func TestAggregateClampsSkillScores(t *testing.T) {
	s := validSynthesis()
	s.SkillsDistribution = map[string]float64{"SQL": 140, "Go": -5, "APIs": 72.5}

	rep, err := New(&stubOracle{synthesis: s}).Aggregate(context.Background(), responsesWithScores(70), model.SessionMetadata{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := map[string]float64{"SQL": 100, "Go": 0, "APIs": 72.5}
	if !reflect.DeepEqual(rep.SkillsDistribution, want) {
		t.Errorf("SkillsDistribution = %v, want %v", rep.SkillsDistribution, want)
	}
}

func TestAggregateNilSynthesisLists(t *testing.T) {
	s := &oracle.Synthesis{Recommendation: "no_hire"}
	rep, err := New(&stubOracle{synthesis: s}).Aggregate(context.Background(), responsesWithScores(20), model.SessionMetadata{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if rep.Strengths == nil || rep.AreasForImprovement == nil {
		t.Error("nil oracle lists should come back as empty slices")
	}
	if rep.Recommendation != model.RecommendNoHire {
		t.Errorf("Recommendation = %q, want no_hire", rep.Recommendation)
	}
}
