package guard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/auth"
	httperrors "github.com/quizdeck/quizdeck/pkg/http/errors"
)

// HTTPHandlers exposes the guard decision endpoint the client calls before
// each route change.
type HTTPHandlers struct {
	logger zerolog.Logger
}

// NewHTTPHandlers creates guard HTTP handlers.
func NewHTTPHandlers(logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{logger: logger}
}

// Navigate handles GET /v1/navigate?to=<route>. Auth state is taken from the
// request context, so the auth middleware must run ahead of this handler.
func (h *HTTPHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("to")
	if target == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "query parameter 'to' is required")
		return
	}

	state := State{}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		state.Authenticated = true
		state.EmailVerified = claims.EmailVerified
		state.IsAdmin = claims.IsAdmin
	}

	decision := Decide(state, target)
	if !decision.Allow {
		h.logger.Debug().
			Str("target", target).
			Str("redirect_to", decision.RedirectTo).
			Bool("authenticated", state.Authenticated).
			Msg("navigation redirected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(decision)
}
