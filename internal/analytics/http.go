package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/quiz"
	httperrors "github.com/quizdeck/quizdeck/pkg/http/errors"
)

type quizSource interface {
	ListAll(ctx context.Context) ([]quiz.Quiz, error)
}

type resultSource interface {
	ListAll(ctx context.Context) ([]quiz.Result, error)
}

// HTTPHandlers serves the admin analytics endpoints. Aggregation happens
// over a fresh snapshot per request, the same way the dashboard recomputes
// on load.
type HTTPHandlers struct {
	quizzes quizSource
	results resultSource
	logger  zerolog.Logger
}

// NewHTTPHandlers creates analytics HTTP handlers.
func NewHTTPHandlers(quizzes quizSource, results resultSource, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		quizzes: quizzes,
		results: results,
		logger:  logger.With().Str("component", "analytics").Logger(),
	}
}

type quizStats struct {
	QuizID   uuid.UUID `json:"quiz_id"`
	Title    string    `json:"title"`
	Attempts int       `json:"attempts"`
	AvgScore float64   `json:"avg_score"`
	AvgTime  string    `json:"avg_time"`
}

type questionStats struct {
	QuestionID       string `json:"question_id"`
	Prompt           string `json:"prompt"`
	CorrectPct       int    `json:"correct_pct"`
	MostMissedOption string `json:"most_missed_option,omitempty"`
}

// Overview handles GET /v1/admin/analytics: per-quiz aggregates plus the
// analytics leaderboard.
func (h *HTTPHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	agg, quizzes, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	stats := make([]quizStats, 0, len(quizzes))
	for _, qz := range quizzes {
		stats = append(stats, quizStats{
			QuizID:   qz.ID,
			Title:    qz.Title,
			Attempts: agg.Attempts(qz.ID),
			AvgScore: agg.AvgScore(qz.ID),
			AvgTime:  agg.AvgTime(qz.ID),
		})
	}

	writeJSON(w, map[string]any{
		"quizzes":     stats,
		"leaderboard": agg.Leaderboard(),
	})
}

// QuizDetail handles GET /v1/admin/analytics/quizzes/{id}: per-question
// breakdown for one quiz.
func (h *HTTPHandlers) QuizDetail(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	agg, quizzes, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var target *quiz.Quiz
	for i := range quizzes {
		if quizzes[i].ID == quizID {
			target = &quizzes[i]
			break
		}
	}
	if target == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
		return
	}

	questions := make([]questionStats, 0, len(target.Questions))
	for _, q := range target.Questions {
		questions = append(questions, questionStats{
			QuestionID:       q.ID,
			Prompt:           q.Prompt,
			CorrectPct:       agg.QuestionCorrectPct(quizID, q.ID),
			MostMissedOption: agg.MostMissedOption(quizID, q.ID),
		})
	}

	writeJSON(w, map[string]any{
		"quiz_id":   quizID,
		"title":     target.Title,
		"attempts":  agg.Attempts(quizID),
		"avg_score": agg.AvgScore(quizID),
		"avg_time":  agg.AvgTime(quizID),
		"questions": questions,
	})
}

func (h *HTTPHandlers) snapshot(w http.ResponseWriter, r *http.Request) (*Aggregator, []quiz.Quiz, bool) {
	quizzes, err := h.quizzes.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("analytics quiz load failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAnalyticsFetchFailed, "could not load analytics")
		return nil, nil, false
	}
	results, err := h.results.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("analytics result load failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAnalyticsFetchFailed, "could not load analytics")
		return nil, nil, false
	}
	return New(quizzes, results), quizzes, true
}

func quizIDFromPath(w http.ResponseWriter, path string) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "quizzes" && i+1 < len(parts) {
			id, err := uuid.Parse(parts[i+1])
			if err != nil {
				httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidQuizID, "invalid quiz id")
				return uuid.Nil, false
			}
			return id, true
		}
	}
	httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidQuizID, "quiz id is required")
	return uuid.Nil, false
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
