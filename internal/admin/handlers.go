// Package admin is the administrative HTTP façade over user management. Its
// responses use the flat success/error envelope the admin UI expects, which
// differs from the v1 API error shape.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/auth"
	"github.com/quizdeck/quizdeck/internal/session"
)

type authNotifier interface {
	AuthChanged(ctx context.Context, userID uuid.UUID, event string) error
}

// Handlers serves the /api admin endpoints. The router wires RequireAdmin
// ahead of every route.
type Handlers struct {
	service  *auth.Service
	notifier authNotifier
	logger   zerolog.Logger
}

// NewHandlers creates the admin façade. notifier may be nil.
func NewHandlers(service *auth.Service, notifier authNotifier, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		notifier: notifier,
		logger:   logger.With().Str("component", "admin").Logger(),
	}
}

// ListUsers handles GET /api/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list users failed")
		respondFailure(w, http.StatusInternalServerError, "could not list users")
		return
	}
	respondSuccess(w, map[string]any{"users": users})
}

// Promote handles POST /api/users/promote.
func (h *Handlers) Promote(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

// Demote handles POST /api/users/demote.
func (h *Handlers) Demote(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h *Handlers) setAdmin(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	var req struct {
		UID string `json:"uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" {
		respondFailure(w, http.StatusBadRequest, "uid is required")
		return
	}
	userID, err := uuid.Parse(req.UID)
	if err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Admins cannot demote themselves; the last admin would lock everyone
	// out of this surface.
	if !isAdmin {
		if claims, found := auth.ClaimsFromContext(r.Context()); found && claims.UserID == userID {
			respondFailure(w, http.StatusBadRequest, "cannot demote yourself")
			return
		}
	}

	if err := h.service.SetAdmin(r.Context(), userID, isAdmin); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondFailure(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Msg("set admin failed")
		respondFailure(w, http.StatusInternalServerError, "could not change role")
		return
	}

	h.notify(r.Context(), userID, session.EventRoleChanged)
	respondSuccess(w, nil)
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromPath(w, r.URL.Path)
	if !ok {
		return
	}

	if claims, found := auth.ClaimsFromContext(r.Context()); found && claims.UserID == userID {
		respondFailure(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondFailure(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Msg("delete user failed")
		respondFailure(w, http.StatusInternalServerError, "could not delete user")
		return
	}

	h.notify(r.Context(), userID, session.EventLogout)
	respondSuccess(w, nil)
}

// Invite handles POST /api/users/invite.
func (h *Handlers) Invite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondFailure(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.Invite(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("invite failed")
		respondFailure(w, http.StatusInternalServerError, "could not send invite")
		return
	}
	respondSuccess(w, nil)
}

// Register handles POST /api/register: account creation through the admin
// surface. Unlike the v1 endpoint it returns the flat envelope and no
// tokens; the created user signs in on their own.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, _, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			respondFailure(w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
			respondFailure(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("admin registration failed")
			respondFailure(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	respondSuccess(w, map[string]any{"user": user})
}

func (h *Handlers) notify(ctx context.Context, userID uuid.UUID, event string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.AuthChanged(ctx, userID, event); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("auth event publish failed")
	}
}

func userIDFromPath(w http.ResponseWriter, path string) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "users" && i+1 < len(parts) {
			id, err := uuid.Parse(parts[i+1])
			if err != nil {
				respondFailure(w, http.StatusBadRequest, "invalid user id")
				return uuid.Nil, false
			}
			return id, true
		}
	}
	respondFailure(w, http.StatusBadRequest, "user id is required")
	return uuid.Nil, false
}

func respondSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func respondFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
