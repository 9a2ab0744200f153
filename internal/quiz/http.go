package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/quizdeck/quizdeck/pkg/http/errors"
)

// HTTPHandlers exposes the quiz catalog endpoints. Write endpoints are
// admin-only; the router wires the admin middleware ahead of them.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates quiz HTTP handlers.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{service: service, logger: logger}
}

// ListPublished handles GET /v1/quizzes.
func (h *HTTPHandlers) ListPublished(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListPublished(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list published quizzes failed")
		httperrors.RespondInternalError(w, "could not list quizzes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

// GetPublished handles GET /v1/quizzes/{id}.
func (h *HTTPHandlers) GetPublished(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	qz, err := h.service.GetPublished(r.Context(), quizID)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrQuizNotPublished):
			// Unpublished quizzes 404 rather than leak their existence.
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
		default:
			h.logger.Error().Err(err).Msg("get quiz failed")
			httperrors.RespondInternalError(w, "could not load quiz")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": qz})
}

// ListAll handles GET /v1/admin/quizzes.
func (h *HTTPHandlers) ListAll(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list quizzes failed")
		httperrors.RespondInternalError(w, "could not list quizzes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

// Create handles POST /v1/admin/quizzes.
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var qz Quiz
	if err := json.NewDecoder(r.Body).Decode(&qz); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), qz)
	if err != nil {
		if isValidationError(err) {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "")
			return
		}
		h.logger.Error().Err(err).Msg("create quiz failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizCreationFailed, "could not create quiz")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quiz": created})
}

// Get handles GET /v1/admin/quizzes/{id}.
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	qz, err := h.service.Get(r.Context(), quizID)
	if err != nil {
		if errors.Is(err, ErrQuizNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
			return
		}
		h.logger.Error().Err(err).Msg("get quiz failed")
		httperrors.RespondInternalError(w, "could not load quiz")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": qz})
}

// Update handles PUT /v1/admin/quizzes/{id}.
func (h *HTTPHandlers) Update(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	var qz Quiz
	if err := json.NewDecoder(r.Body).Decode(&qz); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}
	qz.ID = quizID

	updated, err := h.service.Update(r.Context(), qz)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuizNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
		case isValidationError(err):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "")
		default:
			h.logger.Error().Err(err).Msg("update quiz failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizUpdateFailed, "could not update quiz")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": updated})
}

// SetPublished handles POST /v1/admin/quizzes/{id}/publish.
func (h *HTTPHandlers) SetPublished(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	var req struct {
		Published bool `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.service.SetPublished(r.Context(), quizID, req.Published); err != nil {
		if errors.Is(err, ErrQuizNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
			return
		}
		h.logger.Error().Err(err).Msg("set publish state failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizUpdateFailed, "could not change publish state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"published": req.Published})
}

// Delete handles DELETE /v1/admin/quizzes/{id}.
func (h *HTTPHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), quizID); err != nil {
		if errors.Is(err, ErrQuizNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
			return
		}
		h.logger.Error().Err(err).Msg("delete quiz failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizDeleteFailed, "could not delete quiz")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrNoQuestions) ||
		errors.Is(err, ErrNoCorrectAnswers) ||
		errors.Is(err, ErrUnknownQuestionType) ||
		errors.Is(err, ErrAnswerNotInOptions)
}

// quizIDFromPath parses the UUID path segment after "quizzes". A bad ID
// writes the error response and returns ok=false.
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
