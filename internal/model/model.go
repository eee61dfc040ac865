package model

import "time"

// QuestionType classifies an interview question.
type QuestionType string

const (
	QuestionTechnical   QuestionType = "technical"
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionSituational QuestionType = "situational"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// SessionStatus represents the status of an interview session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusTerminated SessionStatus = "terminated"
)

// Recommendation is the hiring verdict attached to a report.
type Recommendation string

const (
	RecommendStrongHire Recommendation = "strong_hire"
	RecommendHire       Recommendation = "hire"
	RecommendMaybe      Recommendation = "maybe"
	RecommendNoHire     Recommendation = "no_hire"
)

// ValidRecommendation reports whether r is one of the four closed enum
// values. Anything else coming back from the synthesis oracle is rejected
// and replaced with RecommendMaybe.
func ValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendStrongHire, RecommendHire, RecommendMaybe, RecommendNoHire:
		return true
	}
	return false
}

// Question is the reference material for one interview question. Questions
// are produced by an external generation step and are read-only once a
// session references them.
type Question struct {
	ID               int64        `json:"id"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Difficulty       Difficulty   `json:"difficulty"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
	IdealAnswer      string       `json:"ideal_answer"`
	Keywords         []string     `json:"keywords"`
}

// ResponseScore is the scored record for one answered question. It is
// created synchronously when the answer is processed and immutable after.
type ResponseScore struct {
	ID                int64     `json:"id"`
	SessionID         string    `json:"session_id"`
	QuestionID        int64     `json:"question_id"`
	MentionedConcepts []string  `json:"mentioned_concepts"`
	MissedConcepts    []string  `json:"missed_concepts"`
	KeywordScore      float64   `json:"keyword_score"`
	SimilarityScore   float64   `json:"similarity_score"`
	FinalScore        float64   `json:"final_score"`
	IsCorrect         bool      `json:"is_correct"`
	Transcript        string    `json:"transcript"`
	ReferenceAnswer   string    `json:"reference_answer"`
	Feedback          string    `json:"feedback"`
	CreatedAt         time.Time `json:"created_at"`
}

// InterviewSession owns an ordered sequence of response scores and at most
// one report. Proctoring fields are maintained by an external proctoring
// collaborator and merged into the report verbatim.
type InterviewSession struct {
	ID                string        `json:"id"`
	Candidate         string        `json:"candidate"`
	Status            SessionStatus `json:"status"`
	WarningCount      int           `json:"warning_count"`
	TerminationReason string        `json:"termination_reason,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}

// ProctoringEvent is one infraction logged against a session.
type ProctoringEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMetadata is the proctoring slice of a session passed into report
// aggregation.
type SessionMetadata struct {
	WarningCount      int               `json:"warning_count"`
	Infractions       []ProctoringEvent `json:"infractions"`
	TerminationReason string            `json:"termination_reason,omitempty"`
}

// InterviewReport is the session-level aggregate. One per session,
// regeneration overwrites the prior report.
type InterviewReport struct {
	ID                  int64              `json:"id"`
	SessionID           string             `json:"session_id"`
	OverallScore        float64            `json:"overall_score"`
	Recommendation      Recommendation     `json:"recommendation"`
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areas_for_improvement"`
	SkillsDistribution  map[string]float64 `json:"skills_distribution"`
	WarningCount        int                `json:"warning_count"`
	Infractions         []ProctoringEvent  `json:"infractions"`
	TerminationReason   string             `json:"termination_reason,omitempty"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// EngineConfig holds the scoring constants. The defaults are product
// decisions, not derived values; they can be overridden via flags but the
// stock weights must stay 80/20 with a 65 threshold for compatibility with
// previously scored sessions.
type EngineConfig struct {
	KeywordWeight    float64
	SimilarityWeight float64
	CorrectThreshold float64
}

// DefaultEngineConfig returns the stock scoring constants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		KeywordWeight:    0.80,
		SimilarityWeight: 0.20,
		CorrectThreshold: 65.0,
	}
}

// SessionConfig holds runtime parameters set via CLI flags.
type SessionConfig struct {
	NumQuestions int    // 0 means all available
	Difficulty   string // empty means all difficulties
	Type         string // empty means all question types
	Shuffle      bool
}

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Difficulty       Difficulty   `json:"difficulty"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
	IdealAnswer      string       `json:"ideal_answer"`
	Keywords         []string     `json:"keywords"`
}

// SessionView combines a session with its scored responses and report for
// API responses and export.
type SessionView struct {
	Session   InterviewSession  `json:"session"`
	Responses []ResponseScore   `json:"responses"`
	Events    []ProctoringEvent `json:"events,omitempty"`
	Report    *InterviewReport  `json:"report,omitempty"`
}
