package attempt

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/auth"
	"github.com/quizdeck/quizdeck/internal/quiz"
	httperrors "github.com/quizdeck/quizdeck/pkg/http/errors"
)

// HTTPHandlers exposes the submission endpoint. Requires a verified session;
// the router wires RequireVerified ahead of it.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates attempt HTTP handlers.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{service: service, logger: logger}
}

type submitRequest struct {
	Answers     map[string]quiz.Answer `json:"answers"`
	TimeSpentMS int64                  `json:"time_spent_ms"`
}

// Submit handles POST /v1/quizzes/{id}/submit.
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "authentication required")
		return
	}

	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	outcome, err := h.service.Submit(r.Context(), Submission{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		QuizID:      quizID,
		Answers:     req.Answers,
		TimeSpentMS: req.TimeSpentMS,
	})
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrQuizNotFound), errors.Is(err, quiz.ErrQuizNotPublished):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
		case errors.Is(err, ErrNoAnswers), errors.Is(err, ErrUnknownQuestion):
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidAnswers, err.Error())
		default:
			h.logger.Error().Err(err).Msg("submission failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "could not grade submission")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(outcome)
}

// History handles GET /v1/results: the caller's own attempt history.
func (h *HTTPHandlers) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "authentication required")
		return
	}

	results, err := h.service.History(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("result history failed")
		httperrors.RespondInternalError(w, "could not load results")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
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
