// Package handler exposes the scoring engine as a JSON API. It owns the
// translation between engine errors and HTTP status codes; in particular a
// scoring outage is always surfaced as retryable, never as a zero score.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hireview/hireview/internal/match"
	"github.com/hireview/hireview/internal/model"
	"github.com/hireview/hireview/internal/report"
	"github.com/hireview/hireview/internal/score"
	"github.com/hireview/hireview/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	scorer     *score.Scorer
	aggregator *report.Aggregator
	config     model.SessionConfig
}

// New creates a new Handler.
func New(s *store.Store, sc *score.Scorer, agg *report.Aggregator, cfg model.SessionConfig) *Handler {
	return &Handler{store: s, scorer: sc, aggregator: agg, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/sessions/{sessionID}/questions/{questionID}/answer", h.handleAnswer)
	r.Post("/sessions/{sessionID}/proctoring", h.handleProctoring)
	r.Post("/sessions/{sessionID}/complete", h.handleComplete)
	r.Get("/sessions/{sessionID}/report", h.handleGetReport)
	r.Post("/sessions/{sessionID}/report", h.handleRegenerateReport)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []model.InterviewSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type createSessionRequest struct {
	Candidate    string `json:"candidate"`
	NumQuestions int    `json:"num_questions"`
	Type         string `json:"type"`
	Difficulty   string `json:"difficulty"`
}

type createSessionResponse struct {
	Session   model.InterviewSession `json:"session"`
	Questions []model.Question       `json:"questions"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req := createSessionRequest{
		NumQuestions: h.config.NumQuestions,
		Type:         h.config.Type,
		Difficulty:   h.config.Difficulty,
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	questions, err := h.store.ListQuestionsFiltered(req.Type, req.Difficulty)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(questions) == 0 {
		writeError(w, http.StatusBadRequest, "no questions match the requested filters")
		return
	}

	if h.config.Shuffle {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if req.NumQuestions > 0 && req.NumQuestions < len(questions) {
		questions = questions[:req.NumQuestions]
	}

	questionIDs := make([]int64, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}

	sess, err := h.store.CreateSession(req.Candidate, questionIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("session created", "session_id", sess.ID, "questions", len(questionIDs))
	writeJSON(w, http.StatusCreated, createSessionResponse{Session: sess, Questions: questions})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	view, err := h.store.GetSessionView(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Transcript string `json:"transcript"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question ID")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess.Status != model.StatusInProgress {
		writeError(w, http.StatusConflict, "session is not in progress")
		return
	}

	ok, err := h.store.SessionHasQuestion(sessionID, questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "question is not part of this session")
		return
	}

	if existing, err := h.store.GetResponseScore(sessionID, questionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "question already answered")
		return
	}

	question, err := h.store.GetQuestion(questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rs, err := h.scorer.Score(r.Context(), req.Transcript, question)
	if errors.Is(err, match.ErrScoringUnavailable) {
		// Transient infrastructure failure: the candidate retries, they
		// are never handed a zero.
		slog.Error("scoring unavailable", "session_id", sessionID, "question_id", questionID, "error", err)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "scoring temporarily unavailable, try again")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rs.SessionID = sessionID
	id, err := h.store.InsertResponseScore(rs)
	if err != nil {
		// Lost an insert race with another submission for the same question.
		writeError(w, http.StatusConflict, "question already answered")
		return
	}
	rs.ID = id

	slog.Info("response scored",
		"session_id", sessionID,
		"question_id", questionID,
		"final_score", rs.FinalScore,
		"correct", rs.IsCorrect,
	)
	writeJSON(w, http.StatusCreated, rs)
}

type proctoringRequest struct {
	EventType string `json:"event_type"`
	Detail    string `json:"detail"`
	Terminate bool   `json:"terminate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleProctoring(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req proctoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	if _, err := h.store.GetSession(sessionID); errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := h.store.AddProctoringEvent(model.ProctoringEvent{
		SessionID: sessionID,
		EventType: req.EventType,
		Detail:    req.Detail,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Terminate {
		reason := req.Reason
		if reason == "" {
			reason = req.EventType
		}
		if err := h.store.TerminateSession(sessionID, reason); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	sess, err := h.store.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleComplete marks the session completed. Deliberately a pure state
// transition: report generation happens on the report endpoints, so a
// synthesis failure can never leave a session half-completed.
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess.Status != model.StatusInProgress {
		writeError(w, http.StatusConflict, "session is not in progress")
		return
	}

	if err := h.store.CompleteSession(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess, err = h.store.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("session completed", "session_id", sessionID)
	writeJSON(w, http.StatusOK, sess)
}

// handleGetReport returns the stored report, generating it lazily on first
// fetch.
func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	rep, err := h.store.GetReport(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rep != nil {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	h.generateReport(w, r, sessionID)
}

// handleRegenerateReport always re-runs aggregation, overwriting any stored
// report.
func (h *Handler) handleRegenerateReport(w http.ResponseWriter, r *http.Request) {
	h.generateReport(w, r, chi.URLParam(r, "sessionID"))
}

func (h *Handler) generateReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// All of a session's responses must exist before aggregating; an open
	// session may still receive answers.
	if sess.Status == model.StatusInProgress {
		writeError(w, http.StatusConflict, "session is still in progress")
		return
	}

	responses, err := h.store.GetSessionResponses(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	events, err := h.store.GetProctoringEvents(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rep, err := h.aggregator.Aggregate(r.Context(), responses, model.SessionMetadata{
		WarningCount:      sess.WarningCount,
		Infractions:       events,
		TerminationReason: sess.TerminationReason,
	})
	if errors.Is(err, report.ErrInsufficientData) {
		writeError(w, http.StatusBadRequest, "cannot generate a report with no responses")
		return
	}
	if errors.Is(err, report.ErrReportGeneration) {
		slog.Error("report generation failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, "report generation failed, try again")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rep.SessionID = sessionID
	if err := h.store.UpsertReport(rep); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stored, err := h.store.GetReport(sessionID)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "report stored but could not be read back")
		return
	}
	slog.Info("report generated",
		"session_id", sessionID,
		"overall_score", stored.OverallScore,
		"recommendation", stored.Recommendation,
	)
	writeJSON(w, http.StatusOK, stored)
}
