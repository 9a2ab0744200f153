package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/session"
	httperrors "github.com/quizdeck/quizdeck/pkg/http/errors"
)

// AuthEventPublisher fans session changes out to the user's other tabs.
type AuthEventPublisher interface {
	AuthChanged(ctx context.Context, userID uuid.UUID, event string) error
}

// HTTPHandlers exposes authentication endpoints.
type HTTPHandlers struct {
	service *Service
	oauth   *OAuthService
	events  AuthEventPublisher
	logger  zerolog.Logger
}

// NewHTTPHandlers creates auth HTTP handlers. events may be nil.
func NewHTTPHandlers(service *Service, oauth *OAuthService, events AuthEventPublisher, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		oauth:   oauth,
		events:  events,
		logger:  logger,
	}
}

func (h *HTTPHandlers) publishAuthEvent(ctx context.Context, userID uuid.UUID, event string) {
	if h.events == nil {
		return
	}
	if err := h.events.AuthChanged(ctx, userID, event); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("auth event publish failed")
	}
}

// Register handles POST /v1/auth/register.
func (h *HTTPHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	user, tokens, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAlreadyExists, "email already registered")
		case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "password")
		case errors.Is(err, ErrInvalidInvite):
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidToken, "invalid or expired invite token")
		default:
			h.logger.Error().Err(err).Msg("registration failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeRegistrationFailed, "registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// Login handles POST /v1/auth/login.
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	user, tokens, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "invalid email or password")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLoginFailed, "login failed")
		return
	}

	h.publishAuthEvent(r.Context(), user.ID, session.EventLogin)

	respondJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// Logout handles POST /v1/auth/logout. Tokens are stateless, so the client
// discards them; the endpoint exists to tell the user's other tabs.
func (h *HTTPHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "authentication required")
		return
	}

	h.publishAuthEvent(r.Context(), claims.UserID, session.EventLogout)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// RefreshToken handles POST /v1/auth/refresh.
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "refresh_token is required")
		return
	}

	tokens, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, "invalid refresh token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// VerifyEmail handles POST /v1/auth/verify-email.
func (h *HTTPHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "token is required")
		return
	}

	userID, err := h.service.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidVerifyToken) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeVerificationFailed, "invalid or expired verification token")
			return
		}
		h.logger.Error().Err(err).Msg("email verification failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeVerificationFailed, "verification failed")
		return
	}

	// Open tabs re-fetch tokens to pick up the verified claim.
	h.publishAuthEvent(r.Context(), userID, session.EventVerified)

	respondJSON(w, http.StatusOK, map[string]any{"verified": true})
}

// ResendVerification handles POST /v1/auth/resend-verification. Requires auth.
func (h *HTTPHandlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "authentication required")
		return
	}

	if err := h.service.ResendVerification(r.Context(), claims.UserID); err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.UserID.String()).Msg("resend verification failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeVerificationFailed, "could not send verification email")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sent": true})
}

// GetMe handles GET /v1/users/me. Requires auth.
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "authentication required")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Msg("get user failed")
		httperrors.RespondInternalError(w, "could not load user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// OAuthStart handles GET /v1/auth/oauth/{provider}.
func (h *HTTPHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := extractProviderFromPath(r.URL.Path)
	if provider == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "provider is required")
		return
	}

	state, err := randomToken()
	if err != nil {
		httperrors.RespondInternalError(w, "could not start OAuth flow")
		return
	}

	authURL, err := h.oauth.StartOAuthFlow(provider, state)
	if err != nil {
		h.logger.Error().Err(err).Str("provider", provider).Msg("OAuth start failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeOAuthStartFailed, "could not start OAuth flow")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{"auth_url": authURL})
}

// OAuthCallback handles GET /v1/auth/oauth/{provider}/callback.
func (h *HTTPHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := extractProviderFromPath(r.URL.Path)
	code := r.URL.Query().Get("code")
	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthMissingCode, "authorization code is required")
		return
	}

	state := r.URL.Query().Get("state")
	if cookie, err := r.Cookie("oauth_state"); err != nil || cookie.Value == "" || cookie.Value != state {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthInvalidState, "OAuth state mismatch")
		return
	}

	info, err := h.oauth.HandleOAuthCallback(r.Context(), provider, code)
	if err != nil {
		h.logger.Error().Err(err).Str("provider", provider).Msg("OAuth callback failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeOAuthCallbackFailed, "OAuth callback failed")
		return
	}

	user, tokens, err := h.oauth.CreateOrGetOAuthUser(r.Context(), h.service, provider, info)
	if err != nil {
		h.logger.Error().Err(err).Str("provider", provider).Msg("OAuth user resolution failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeOAuthCallbackFailed, "could not sign in")
		return
	}

	h.publishAuthEvent(r.Context(), user.ID, session.EventLogin)

	respondJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// extractProviderFromPath pulls the provider segment out of
// /v1/auth/oauth/{provider} or /v1/auth/oauth/{provider}/callback.
func extractProviderFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "oauth" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
