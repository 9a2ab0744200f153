package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/auth/jwt"
	"github.com/quizdeck/quizdeck/internal/db/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrInvalidInvite      = errors.New("invalid or expired invite token")
)

type userStore interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	List(ctx context.Context) ([]repository.User, error)
	UpdateLogin(ctx context.Context, userID uuid.UUID) error
	SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error
	SetEmailVerified(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// EmailSender is the transactional email surface the auth flows use. A nil
// sender disables outbound email.
type EmailSender interface {
	SendVerificationAsync(toEmail, token string)
	SendInviteAsync(toEmail, token string)
	SendAdminGrantAsync(toEmail string)
}

// Service is the identity provider: it issues and validates session tokens,
// tracks the verified-email flag and the admin claim, and drives the
// verification/invite email flows.
type Service struct {
	users    userStore
	tokenMgr *jwt.Manager
	redis    *redis.Client
	emails   EmailSender
	opts     ServiceOptions
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig          jwt.TokenConfig
	VerificationTokenTTL time.Duration // default 24h
	InviteTokenTTL       time.Duration // default 72h
}

// NewService creates an authentication service. emails may be nil when SMTP
// is not configured; the verification/invite flows then skip sending.
func NewService(users userStore, redisClient *redis.Client, emails EmailSender, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.VerificationTokenTTL <= 0 {
		opts.VerificationTokenTTL = 24 * time.Hour
	}
	if opts.InviteTokenTTL <= 0 {
		opts.InviteTokenTTL = 72 * time.Hour
	}
	return &Service{
		users:    users,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		redis:    redisClient,
		emails:   emails,
		opts:     opts,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new user account and kicks off email verification. A
// valid invite token is consumed and skips verification: the invite email
// already proved ownership of the address.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	if req.Email == "" {
		return nil, nil, fmt.Errorf("email required")
	}

	if req.InviteToken != "" {
		if err := s.checkInvite(ctx, req.InviteToken, req.Email); err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, nil, ErrEmailTaken
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	dbUser, err := s.users.Create(ctx, repository.CreateParams{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	user := toUser(dbUser)

	if req.InviteToken != "" {
		if err := s.redeemInvite(ctx, req.InviteToken, dbUser.ID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", dbUser.ID.String()).Msg("invite redemption failed")
		} else {
			user.EmailVerified = true
		}
	} else if err := s.sendVerification(ctx, dbUser.ID, dbUser.Email); err != nil {
		// Verification can be re-requested; registration still succeeds.
		s.logger.Warn().Err(err).Str("user_id", dbUser.ID.String()).Msg("could not start email verification")
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("email", req.Email).Msg("user registered")
	return &user, tokens, nil
}

// Login authenticates a user with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	dbUser, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if dbUser.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(dbUser.PasswordHash, req.Password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	user := toUser(dbUser)

	_ = s.users.UpdateLogin(ctx, user.ID)

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &user, tokens, nil
}

// RefreshToken generates a new token pair from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	dbUser, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return s.generateTokenPair(toUser(dbUser))
}

// ValidateToken validates an access token and returns user claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

// GetUser fetches the stored profile for a user.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	dbUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user := toUser(dbUser)
	return &user, nil
}

// ResendVerification issues a fresh verification token for the user.
func (s *Service) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	dbUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if dbUser.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, dbUser.ID, dbUser.Email)
}

// VerifyEmail consumes a verification token, marks the email verified and
// returns the affected user ID.
func (s *Service) VerifyEmail(ctx context.Context, token string) (uuid.UUID, error) {
	if s.redis == nil {
		return uuid.Nil, fmt.Errorf("redis not configured for email verification")
	}

	key := verificationKey(token)
	userIDStr, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrInvalidVerifyToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get verification token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, ErrInvalidVerifyToken
	}

	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return uuid.Nil, fmt.Errorf("mark verified: %w", err)
	}

	// Single use.
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete verification token")
	}

	s.logger.Info().Str("user_id", userID.String()).Msg("email verified")
	return userID, nil
}

// Invite stores an invite token and emails the invitation. Failures past
// token storage are logged only.
func (s *Service) Invite(ctx context.Context, toEmail string) error {
	if s.redis == nil {
		return fmt.Errorf("redis not configured for invites")
	}
	if toEmail == "" {
		return fmt.Errorf("email required")
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := s.redis.Set(ctx, inviteKey(token), toEmail, s.opts.InviteTokenTTL).Err(); err != nil {
		return fmt.Errorf("store invite token: %w", err)
	}

	if s.emails != nil {
		s.emails.SendInviteAsync(toEmail, token)
	}

	s.logger.Info().Str("email", toEmail).Msg("invite issued")
	return nil
}

// ListUsers returns all profiles for the admin surface.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	dbUsers, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toUser(u))
	}
	return users, nil
}

// SetAdmin grants or revokes the admin claim. A grant sends a notification
// email; the notice is fire-and-forget.
func (s *Service) SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error {
	dbUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.SetAdmin(ctx, userID, isAdmin); err != nil {
		return fmt.Errorf("set admin: %w", err)
	}

	if isAdmin && !dbUser.IsAdmin && s.emails != nil {
		s.emails.SendAdminGrantAsync(dbUser.Email)
	}

	s.logger.Info().Str("user_id", userID.String()).Bool("is_admin", isAdmin).Msg("admin claim updated")
	return nil
}

// DeleteUser removes a profile.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("user deleted")
	return nil
}

// checkInvite validates an invite token against the registering email
// without consuming it; rejection leaves the token usable.
func (s *Service) checkInvite(ctx context.Context, token, email string) error {
	if s.redis == nil {
		return fmt.Errorf("redis not configured for invites")
	}

	invitedEmail, err := s.redis.Get(ctx, inviteKey(token)).Result()
	if err == redis.Nil {
		return ErrInvalidInvite
	}
	if err != nil {
		return fmt.Errorf("get invite token: %w", err)
	}
	if invitedEmail != email {
		return ErrInvalidInvite
	}
	return nil
}

// redeemInvite consumes the token and marks the new account verified.
func (s *Service) redeemInvite(ctx context.Context, token string, userID uuid.UUID) error {
	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if err := s.redis.Del(ctx, inviteKey(token)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete invite token")
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("invite redeemed")
	return nil
}

func (s *Service) sendVerification(ctx context.Context, userID uuid.UUID, toEmail string) error {
	if s.redis == nil {
		return fmt.Errorf("redis not configured for email verification")
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := s.redis.Set(ctx, verificationKey(token), userID.String(), s.opts.VerificationTokenTTL).Err(); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if s.emails != nil {
		s.emails.SendVerificationAsync(toEmail, token)
	}
	return nil
}

func (s *Service) generateTokenPair(user User) (*TokenPair, error) {
	jwtUser := jwt.User{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		IsAdmin:       user.IsAdmin,
		EmailVerified: user.EmailVerified,
	}

	accessToken, err := s.tokenMgr.GenerateAccessToken(jwtUser)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jwtUser)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(1 * 3600),
	}, nil
}

func toUser(u repository.User) User {
	return User{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		IsAdmin:       u.IsAdmin,
		EmailVerified: u.EmailVerified,
		XP:            u.XP,
		Badges:        u.Badges,
	}
}

func verificationKey(token string) string { return "email_verification:" + token }
func inviteKey(token string) string       { return "invite:" + token }

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
