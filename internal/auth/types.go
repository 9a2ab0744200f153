package auth

import (
	"github.com/google/uuid"
)

// User represents an authenticated user profile as surfaced to clients.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	IsAdmin       bool      `json:"is_admin"`
	EmailVerified bool      `json:"email_verified"`
	XP            int       `json:"xp"`
	Badges        []string  `json:"badges"`
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RegisterRequest for email/password registration.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	// InviteToken, when present, redeems an admin invite: the token must
	// match the invited email, and the account starts email-verified.
	InviteToken string `json:"invite_token,omitempty"`
}

// LoginRequest for email/password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuth provider constants.
const (
	OAuthProviderGoogle = "google"
)
