package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hireview/hireview/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		time_limit_seconds INTEGER NOT NULL DEFAULT 120,
		ideal_answer TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		candidate TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in_progress',
		warning_count INTEGER NOT NULL DEFAULT 0,
		termination_reason TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS session_questions (
		session_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (session_id, question_id),
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS response_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		mentioned_concepts TEXT NOT NULL DEFAULT '[]',
		missed_concepts TEXT NOT NULL DEFAULT '[]',
		keyword_score REAL NOT NULL DEFAULT 0,
		similarity_score REAL NOT NULL DEFAULT 0,
		final_score REAL NOT NULL DEFAULT 0,
		is_correct INTEGER NOT NULL DEFAULT 0,
		transcript TEXT NOT NULL DEFAULT '',
		reference_answer TEXT NOT NULL DEFAULT '',
		feedback TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE (session_id, question_id),
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS proctoring_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS interview_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		overall_score REAL NOT NULL DEFAULT 0,
		recommendation TEXT NOT NULL DEFAULT 'maybe',
		strengths TEXT NOT NULL DEFAULT '[]',
		areas_for_improvement TEXT NOT NULL DEFAULT '[]',
		skills_distribution TEXT NOT NULL DEFAULT '{}',
		warning_count INTEGER NOT NULL DEFAULT 0,
		infractions TEXT NOT NULL DEFAULT '[]',
		termination_reason TEXT NOT NULL DEFAULT '',
		generated_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS import_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertQuestion stores a question.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	keywords, err := json.Marshal(q.Keywords)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (text, type, difficulty, time_limit_seconds, ideal_answer, keywords)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.Text, q.Type, q.Difficulty, q.TimeLimitSeconds, q.IdealAnswer, string(keywords),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const questionColumns = `id, text, type, difficulty, time_limit_seconds, ideal_answer, keywords`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var keywords string
	err := row.Scan(&q.ID, &q.Text, &q.Type, &q.Difficulty, &q.TimeLimitSeconds, &q.IdealAnswer, &keywords)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(keywords), &q.Keywords); err != nil {
		return q, fmt.Errorf("decode keywords for question %d: %w", q.ID, err)
	}
	return q, nil
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return scanQuestion(row)
}

// ListQuestionsFiltered returns questions matching the given filters.
// Empty strings mean no filtering on that field.
func (s *Store) ListQuestionsFiltered(qType string, difficulty string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if qType != "" {
		query += ` AND type = ?`
		args = append(args, qType)
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// CreateSession creates an interview session with an assigned ordered
// question sequence.
func (s *Store) CreateSession(candidate string, questionIDs []int64) (model.InterviewSession, error) {
	sess := model.InterviewSession{
		ID:        uuid.NewString(),
		Candidate: candidate,
		Status:    model.StatusInProgress,
		StartedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return model.InterviewSession{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO interview_sessions (id, candidate, status, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Candidate, sess.Status, sess.StartedAt,
	)
	if err != nil {
		return model.InterviewSession{}, err
	}

	for i, qID := range questionIDs {
		_, err := tx.Exec(
			`INSERT INTO session_questions (session_id, question_id, position) VALUES (?, ?, ?)`,
			sess.ID, qID, i,
		)
		if err != nil {
			return model.InterviewSession{}, err
		}
	}

	return sess, tx.Commit()
}

// GetSession returns a session by ID.
func (s *Store) GetSession(id string) (model.InterviewSession, error) {
	var sess model.InterviewSession
	err := s.db.QueryRow(
		`SELECT id, candidate, status, warning_count, termination_reason, started_at, completed_at
		 FROM interview_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Candidate, &sess.Status, &sess.WarningCount,
		&sess.TerminationReason, &sess.StartedAt, &sess.CompletedAt)
	return sess, err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.InterviewSession, error) {
	rows, err := s.db.Query(
		`SELECT id, candidate, status, warning_count, termination_reason, started_at, completed_at
		 FROM interview_sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.InterviewSession
	for rows.Next() {
		var sess model.InterviewSession
		if err := rows.Scan(&sess.ID, &sess.Candidate, &sess.Status, &sess.WarningCount,
			&sess.TerminationReason, &sess.StartedAt, &sess.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CompleteSession marks a session completed. This is a pure state
// transition: it has no bearing on whether a report exists yet.
func (s *Store) CompleteSession(id string) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE interview_sessions SET status = ?, completed_at = ? WHERE id = ?`,
		model.StatusCompleted, now, id,
	)
	return err
}

// TerminateSession marks a session terminated with a reason.
func (s *Store) TerminateSession(id, reason string) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE interview_sessions SET status = ?, termination_reason = ?, completed_at = ? WHERE id = ?`,
		model.StatusTerminated, reason, now, id,
	)
	return err
}

// GetSessionQuestions returns the session's questions in assigned order.
func (s *Store) GetSessionQuestions(sessionID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT q.id, q.text, q.type, q.difficulty, q.time_limit_seconds, q.ideal_answer, q.keywords
		 FROM questions q
		 JOIN session_questions sq ON sq.question_id = q.id
		 WHERE sq.session_id = ?
		 ORDER BY sq.position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SessionHasQuestion reports whether the question belongs to the session's
// assigned set.
func (s *Store) SessionHasQuestion(sessionID string, questionID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM session_questions WHERE session_id = ? AND question_id = ?`,
		sessionID, questionID,
	).Scan(&n)
	return n > 0, err
}

// InsertResponseScore stores a scored response. The unique constraint on
// (session_id, question_id) rejects a second score for the same question.
func (s *Store) InsertResponseScore(rs model.ResponseScore) (int64, error) {
	mentioned, err := json.Marshal(rs.MentionedConcepts)
	if err != nil {
		return 0, err
	}
	missed, err := json.Marshal(rs.MissedConcepts)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO response_scores
		 (session_id, question_id, mentioned_concepts, missed_concepts,
		  keyword_score, similarity_score, final_score, is_correct,
		  transcript, reference_answer, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rs.SessionID, rs.QuestionID, string(mentioned), string(missed),
		rs.KeywordScore, rs.SimilarityScore, rs.FinalScore, rs.IsCorrect,
		rs.Transcript, rs.ReferenceAnswer, rs.Feedback, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const responseColumns = `id, session_id, question_id, mentioned_concepts, missed_concepts,
	keyword_score, similarity_score, final_score, is_correct,
	transcript, reference_answer, feedback, created_at`

func scanResponse(row interface{ Scan(...any) error }) (model.ResponseScore, error) {
	var rs model.ResponseScore
	var mentioned, missed string
	err := row.Scan(&rs.ID, &rs.SessionID, &rs.QuestionID, &mentioned, &missed,
		&rs.KeywordScore, &rs.SimilarityScore, &rs.FinalScore, &rs.IsCorrect,
		&rs.Transcript, &rs.ReferenceAnswer, &rs.Feedback, &rs.CreatedAt)
	if err != nil {
		return rs, err
	}
	if err := json.Unmarshal([]byte(mentioned), &rs.MentionedConcepts); err != nil {
		return rs, fmt.Errorf("decode mentioned concepts for response %d: %w", rs.ID, err)
	}
	if err := json.Unmarshal([]byte(missed), &rs.MissedConcepts); err != nil {
		return rs, fmt.Errorf("decode missed concepts for response %d: %w", rs.ID, err)
	}
	return rs, nil
}

// GetResponseScore returns the score for one (session, question) pair, or
// nil if the question has not been answered.
func (s *Store) GetResponseScore(sessionID string, questionID int64) (*model.ResponseScore, error) {
	row := s.db.QueryRow(
		`SELECT `+responseColumns+` FROM response_scores WHERE session_id = ? AND question_id = ?`,
		sessionID, questionID,
	)
	rs, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

// GetSessionResponses returns a session's scored responses in question
// order.
func (s *Store) GetSessionResponses(sessionID string) ([]model.ResponseScore, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.session_id, r.question_id, r.mentioned_concepts, r.missed_concepts,
		        r.keyword_score, r.similarity_score, r.final_score, r.is_correct,
		        r.transcript, r.reference_answer, r.feedback, r.created_at
		 FROM response_scores r
		 JOIN session_questions sq ON sq.session_id = r.session_id AND sq.question_id = r.question_id
		 WHERE r.session_id = ?
		 ORDER BY sq.position`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var responses []model.ResponseScore
	for rows.Next() {
		rs, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, rs)
	}
	return responses, rows.Err()
}

// AddProctoringEvent logs an infraction and increments the session's
// warning count.
func (s *Store) AddProctoringEvent(ev model.ProctoringEvent) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO proctoring_events (session_id, event_type, detail, created_at) VALUES (?, ?, ?, ?)`,
		ev.SessionID, ev.EventType, ev.Detail, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(
		`UPDATE interview_sessions SET warning_count = warning_count + 1 WHERE id = ?`,
		ev.SessionID,
	)
	if err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

// GetProctoringEvents returns a session's infractions in logged order.
func (s *Store) GetProctoringEvents(sessionID string) ([]model.ProctoringEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, event_type, detail, created_at
		 FROM proctoring_events WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.ProctoringEvent
	for rows.Next() {
		var ev model.ProctoringEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpsertReport stores a session's report, replacing any prior one. The
// unique constraint on session_id makes regeneration an overwrite, never a
// duplicate.
func (s *Store) UpsertReport(rep model.InterviewReport) error {
	strengths, err := json.Marshal(rep.Strengths)
	if err != nil {
		return err
	}
	areas, err := json.Marshal(rep.AreasForImprovement)
	if err != nil {
		return err
	}
	skills, err := json.Marshal(rep.SkillsDistribution)
	if err != nil {
		return err
	}
	infractions, err := json.Marshal(rep.Infractions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO interview_reports
		 (session_id, overall_score, recommendation, strengths, areas_for_improvement,
		  skills_distribution, warning_count, infractions, termination_reason, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   overall_score = excluded.overall_score,
		   recommendation = excluded.recommendation,
		   strengths = excluded.strengths,
		   areas_for_improvement = excluded.areas_for_improvement,
		   skills_distribution = excluded.skills_distribution,
		   warning_count = excluded.warning_count,
		   infractions = excluded.infractions,
		   termination_reason = excluded.termination_reason,
		   generated_at = excluded.generated_at`,
		rep.SessionID, rep.OverallScore, rep.Recommendation, string(strengths), string(areas),
		string(skills), rep.WarningCount, string(infractions), rep.TerminationReason, rep.GeneratedAt,
	)
	return err
}

// GetReport returns the report for a session, or nil if none exists.
func (s *Store) GetReport(sessionID string) (*model.InterviewReport, error) {
	var rep model.InterviewReport
	var strengths, areas, skills, infractions string
	err := s.db.QueryRow(
		`SELECT id, session_id, overall_score, recommendation, strengths, areas_for_improvement,
		        skills_distribution, warning_count, infractions, termination_reason, generated_at
		 FROM interview_reports WHERE session_id = ?`, sessionID,
	).Scan(&rep.ID, &rep.SessionID, &rep.OverallScore, &rep.Recommendation, &strengths, &areas,
		&skills, &rep.WarningCount, &infractions, &rep.TerminationReason, &rep.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(strengths), &rep.Strengths); err != nil {
		return nil, fmt.Errorf("decode strengths for report %d: %w", rep.ID, err)
	}
	if err := json.Unmarshal([]byte(areas), &rep.AreasForImprovement); err != nil {
		return nil, fmt.Errorf("decode areas for report %d: %w", rep.ID, err)
	}
	if err := json.Unmarshal([]byte(skills), &rep.SkillsDistribution); err != nil {
		return nil, fmt.Errorf("decode skills for report %d: %w", rep.ID, err)
	}
	if err := json.Unmarshal([]byte(infractions), &rep.Infractions); err != nil {
		return nil, fmt.Errorf("decode infractions for report %d: %w", rep.ID, err)
	}
	return &rep, nil
}

// GetSessionView builds a full view of a session with responses, events,
// and report.
func (s *Store) GetSessionView(sessionID string) (*model.SessionView, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.GetSessionResponses(sessionID)
	if err != nil {
		return nil, err
	}
	events, err := s.GetProctoringEvents(sessionID)
	if err != nil {
		return nil, err
	}
	rep, err := s.GetReport(sessionID)
	if err != nil {
		return nil, err
	}
	return &model.SessionView{
		Session:   sess,
		Responses: responses,
		Events:    events,
		Report:    rep,
	}, nil
}
