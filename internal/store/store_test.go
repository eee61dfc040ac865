package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/hireview/hireview/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestQuestion(t *testing.T, s *Store, text string, qType model.QuestionType, difficulty model.Difficulty) int64 {
	t.Helper()
	id, err := s.InsertQuestion(model.Question{
		Text:             text,
		Type:             qType,
		Difficulty:       difficulty,
		TimeLimitSeconds: 120,
		IdealAnswer:      "ideal answer for " + text,
		Keywords:         []string{"alpha", "beta", "gamma"},
	})
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	return id
}

func testResponse(sessionID string, questionID int64, finalScore float64) model.ResponseScore {
	return model.ResponseScore{
		SessionID:         sessionID,
		QuestionID:        questionID,
		MentionedConcepts: []string{"alpha"},
		MissedConcepts:    []string{"beta", "gamma"},
		KeywordScore:      33.3,
		SimilarityScore:   50,
		FinalScore:        finalScore,
		IsCorrect:         finalScore >= 65,
		Transcript:        "the answer",
		ReferenceAnswer:   "the ideal answer",
		Feedback:          "Mentioned concepts: alpha. Missed concepts: beta, gamma.",
	}
}

func TestQuestionCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions, got %d", count)
	}

	id := insertTestQuestion(t, s, "What is a closure?", model.QuestionTechnical, model.DifficultyEasy)
	q, err := s.GetQuestion(id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Text != "What is a closure?" {
		t.Errorf("text = %q", q.Text)
	}
	if len(q.Keywords) != 3 || q.Keywords[0] != "alpha" {
		t.Errorf("keywords round-trip failed: %v", q.Keywords)
	}

	_, err = s.GetQuestion(9999)
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestListQuestionsFiltered(t *testing.T) {
	s := newTestStore(t)
	insertTestQuestion(t, s, "Q1", model.QuestionTechnical, model.DifficultyEasy)
	insertTestQuestion(t, s, "Q2", model.QuestionTechnical, model.DifficultyHard)
	insertTestQuestion(t, s, "Q3", model.QuestionBehavioral, model.DifficultyEasy)

	tests := []struct {
		name       string
		qType      string
		difficulty string
		wantCount  int
	}{
		{"no filter", "", "", 3},
		{"technical", "technical", "", 2},
		{"easy", "", "easy", 2},
		{"both", "technical", "easy", 1},
		{"no match", "situational", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := s.ListQuestionsFiltered(tt.qType, tt.difficulty)
			if err != nil {
				t.Fatalf("ListQuestionsFiltered: %v", err)
			}
			if len(qs) != tt.wantCount {
				t.Errorf("got %d questions, want %d", len(qs), tt.wantCount)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	q1 := insertTestQuestion(t, s, "Q1", model.QuestionTechnical, model.DifficultyEasy)
	q2 := insertTestQuestion(t, s, "Q2", model.QuestionTechnical, model.DifficultyMedium)

	sess, err := s.CreateSession("Jordan", []int64{q2, q1})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session ID should be assigned")
	}
	if sess.Status != model.StatusInProgress {
		t.Errorf("status = %q, want in_progress", sess.Status)
	}

	// Assigned order is preserved, not insertion order of the questions.
	questions, err := s.GetSessionQuestions(sess.ID)
	if err != nil {
		t.Fatalf("GetSessionQuestions: %v", err)
	}
	if len(questions) != 2 || questions[0].ID != q2 || questions[1].ID != q1 {
		t.Errorf("question order wrong: %v", questions)
	}

	ok, err := s.SessionHasQuestion(sess.ID, q1)
	if err != nil || !ok {
		t.Errorf("SessionHasQuestion(q1) = %v, %v", ok, err)
	}
	ok, err = s.SessionHasQuestion(sess.ID, 9999)
	if err != nil || ok {
		t.Errorf("SessionHasQuestion(9999) = %v, %v", ok, err)
	}

	if err := s.CompleteSession(sess.ID); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
}

func TestResponseScoreUniquePerQuestion(t *testing.T) {
	s := newTestStore(t)
	qID := insertTestQuestion(t, s, "Q1", model.QuestionTechnical, model.DifficultyEasy)
	sess, err := s.CreateSession("", []int64{qID})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := s.InsertResponseScore(testResponse(sess.ID, qID, 70)); err != nil {
		t.Fatalf("InsertResponseScore: %v", err)
	}
	if _, err := s.InsertResponseScore(testResponse(sess.ID, qID, 90)); err == nil {
		t.Fatal("second score for the same question should be rejected")
	}

	rs, err := s.GetResponseScore(sess.ID, qID)
	if err != nil {
		t.Fatalf("GetResponseScore: %v", err)
	}
	if rs == nil || rs.FinalScore != 70 {
		t.Errorf("stored score = %+v, want the first insert", rs)
	}

	missing, err := s.GetResponseScore(sess.ID, 9999)
	if err != nil {
		t.Fatalf("GetResponseScore(missing): %v", err)
	}
	if missing != nil {
		t.Error("unanswered question should return nil")
	}
}

func TestSessionResponsesOrderedByQuestionPosition(t *testing.T) {
	s := newTestStore(t)
	q1 := insertTestQuestion(t, s, "Q1", model.QuestionTechnical, model.DifficultyEasy)
	q2 := insertTestQuestion(t, s, "Q2", model.QuestionTechnical, model.DifficultyEasy)
	q3 := insertTestQuestion(t, s, "Q3", model.QuestionTechnical, model.DifficultyEasy)
	sess, err := s.CreateSession("", []int64{q1, q2, q3})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Answer out of order.
	for _, qID := range []int64{q3, q1, q2} {
		if _, err := s.InsertResponseScore(testResponse(sess.ID, qID, 50)); err != nil {
			t.Fatalf("InsertResponseScore(q%d): %v", qID, err)
		}
	}

	responses, err := s.GetSessionResponses(sess.ID)
	if err != nil {
		t.Fatalf("GetSessionResponses: %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	for i, want := range []int64{q1, q2, q3} {
		if responses[i].QuestionID != want {
			t.Errorf("responses[%d].QuestionID = %d, want %d", i, responses[i].QuestionID, want)
		}
	}
	if responses[0].MentionedConcepts[0] != "alpha" {
		t.Errorf("concept lists should round-trip, got %v", responses[0].MentionedConcepts)
	}
}

func TestProctoringEventsBumpWarnings(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession("", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for _, evType := range []string{"gaze_away", "multiple_faces"} {
		if _, err := s.AddProctoringEvent(model.ProctoringEvent{
			SessionID: sess.ID,
			EventType: evType,
			Detail:    "detected",
		}); err != nil {
			t.Fatalf("AddProctoringEvent: %v", err)
		}
	}

	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.WarningCount != 2 {
		t.Errorf("WarningCount = %d, want 2", got.WarningCount)
	}

	events, err := s.GetProctoringEvents(sess.ID)
	if err != nil {
		t.Fatalf("GetProctoringEvents: %v", err)
	}
	if len(events) != 2 || events[0].EventType != "gaze_away" {
		t.Errorf("events = %v", events)
	}

	if err := s.TerminateSession(sess.ID, "warning limit exceeded"); err != nil {
		t.Fatalf("TerminateSession: %v", err)
	}
	got, _ = s.GetSession(sess.ID)
	if got.Status != model.StatusTerminated || got.TerminationReason == "" {
		t.Errorf("terminated session = %+v", got)
	}
}

func TestReportUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.CreateSession("", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	none, err := s.GetReport(sess.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if none != nil {
		t.Fatal("expected no report before generation")
	}

	first := model.InterviewReport{
		SessionID:           sess.ID,
		OverallScore:        62,
		Recommendation:      model.RecommendMaybe,
		Strengths:           []string{"s1"},
		AreasForImprovement: []string{"a1"},
		SkillsDistribution:  map[string]float64{"Go": 60},
		GeneratedAt:         time.Now(),
	}
	if err := s.UpsertReport(first); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	second := first
	second.OverallScore = 75
	second.Recommendation = model.RecommendHire
	if err := s.UpsertReport(second); err != nil {
		t.Fatalf("UpsertReport (regenerate): %v", err)
	}

	got, err := s.GetReport(sess.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.OverallScore != 75 || got.Recommendation != model.RecommendHire {
		t.Errorf("regenerated report = %+v, want the second version", got)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM interview_reports WHERE session_id = ?`, sess.ID).Scan(&count); err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if count != 1 {
		t.Errorf("found %d report rows, want 1", count)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("questions.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("hash for never-imported file = %q, want empty", hash)
	}

	if err := s.SetImportedFileHash("questions.json", "abc"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash("questions.json", "def"); err != nil {
		t.Fatalf("SetImportedFileHash (update): %v", err)
	}
	hash, err = s.GetImportedFileHash("questions.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "def" {
		t.Errorf("hash = %q, want def", hash)
	}
}

func TestExportAllSessions(t *testing.T) {
	s := newTestStore(t)
	qID := insertTestQuestion(t, s, "Q1", model.QuestionTechnical, model.DifficultyEasy)
	sess, err := s.CreateSession("Jordan", []int64{qID})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := s.InsertResponseScore(testResponse(sess.ID, qID, 80)); err != nil {
		t.Fatalf("InsertResponseScore: %v", err)
	}

	views, err := s.ExportAllSessions()
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].Session.Candidate != "Jordan" {
		t.Errorf("candidate = %q", views[0].Session.Candidate)
	}
	if len(views[0].Responses) != 1 || views[0].Responses[0].FinalScore != 80 {
		t.Errorf("responses = %v", views[0].Responses)
	}
	if views[0].Report != nil {
		t.Error("report should be nil when never generated")
	}
}
