package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/auth/jwt"
	"github.com/quizdeck/quizdeck/internal/db/repository"
)

type stubUserStore struct {
	byID    map[uuid.UUID]repository.User
	byEmail map[string]repository.User

	verified []uuid.UUID
	admins   map[uuid.UUID]bool
	deleted  []uuid.UUID
}

func newStubUserStore(users ...repository.User) *stubUserStore {
	s := &stubUserStore{
		byID:    make(map[uuid.UUID]repository.User),
		byEmail: make(map[string]repository.User),
		admins:  make(map[uuid.UUID]bool),
	}
	for _, u := range users {
		s.byID[u.ID] = u
		s.byEmail[u.Email] = u
	}
	return s
}

func (s *stubUserStore) Create(_ context.Context, params repository.CreateParams) (repository.User, error) {
	u := repository.User{
		ID:            uuid.New(),
		Email:         params.Email,
		DisplayName:   params.DisplayName,
		PasswordHash:  params.PasswordHash,
		IsAdmin:       params.IsAdmin,
		EmailVerified: params.EmailVerified,
		CreatedAt:     time.Now(),
	}
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return u, nil
}

func (s *stubUserStore) GetByID(_ context.Context, userID uuid.UUID) (repository.User, error) {
	u, ok := s.byID[userID]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) List(_ context.Context) ([]repository.User, error) {
	users := make([]repository.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	return users, nil
}

func (s *stubUserStore) UpdateLogin(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubUserStore) SetAdmin(_ context.Context, userID uuid.UUID, isAdmin bool) error {
	u, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsAdmin = isAdmin
	s.byID[userID] = u
	s.byEmail[u.Email] = u
	s.admins[userID] = isAdmin
	return nil
}

func (s *stubUserStore) SetEmailVerified(_ context.Context, userID uuid.UUID) error {
	u, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	s.byID[userID] = u
	s.byEmail[u.Email] = u
	s.verified = append(s.verified, userID)
	return nil
}

func (s *stubUserStore) Delete(_ context.Context, userID uuid.UUID) error {
	u, ok := s.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, userID)
	delete(s.byEmail, u.Email)
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubEmailSender struct {
	verifications []string
	invites       []string
	adminGrants   []string
	lastToken     string
}

func (s *stubEmailSender) SendVerificationAsync(toEmail, token string) {
	s.verifications = append(s.verifications, toEmail)
	s.lastToken = token
}

func (s *stubEmailSender) SendInviteAsync(toEmail, token string) {
	s.invites = append(s.invites, toEmail)
	s.lastToken = token
}

func (s *stubEmailSender) SendAdminGrantAsync(toEmail string) {
	s.adminGrants = append(s.adminGrants, toEmail)
}

func testTokenConfig() jwt.TokenConfig {
	return jwt.TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func newTestService(t *testing.T, users *stubUserStore, emails *stubEmailSender) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewService(users, client, emails, ServiceOptions{
		TokenConfig: testTokenConfig(),
	}, zerolog.Nop())
	return svc, mr
}

func TestRegisterIssuesTokensAndVerificationEmail(t *testing.T) {
	users := newStubUserStore()
	emails := &stubEmailSender{}
	svc, mr := newTestService(t, users, emails)

	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, tokens)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	require.Len(t, emails.verifications, 1)
	assert.Equal(t, "alice@example.com", emails.verifications[0])

	// The verification token is stored in redis pointing at the new user.
	stored, err := mr.Get("email_verification:" + emails.lastToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), stored)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newStubUserStore(repository.User{
		ID:    uuid.New(),
		Email: "alice@example.com",
	})
	svc, _ := newTestService(t, users, &stubEmailSender{})

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t, newStubUserStore(), &stubEmailSender{})

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLoginSuccessAndFailure(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	userID := uuid.New()
	users := newStubUserStore(repository.User{
		ID:           userID,
		Email:        "alice@example.com",
		PasswordHash: hash,
	})
	svc, _ := newTestService(t, users, &stubEmailSender{})

	user, tokens, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsOAuthOnlyAccount(t *testing.T) {
	// OAuth accounts have no password hash; password login must not succeed.
	users := newStubUserStore(repository.User{
		ID:            uuid.New(),
		Email:         "oauth@example.com",
		EmailVerified: true,
	})
	svc, _ := newTestService(t, users, &stubEmailSender{})

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "oauth@example.com",
		Password: "anything-goes",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	users := newStubUserStore(repository.User{
		ID:            userID,
		Email:         "alice@example.com",
		EmailVerified: true,
	})
	svc, _ := newTestService(t, users, &stubEmailSender{})

	pair, err := svc.generateTokenPair(User{ID: userID, Email: "alice@example.com", EmailVerified: true})
	require.NoError(t, err)

	fresh, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	claims, err := svc.ValidateToken(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.True(t, claims.EmailVerified)

	_, err = svc.RefreshToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	users := newStubUserStore()
	emails := &stubEmailSender{}
	svc, _ := newTestService(t, users, emails)

	user, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	token := emails.lastToken
	require.NotEmpty(t, token)

	verifiedID, err := svc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verifiedID)
	assert.Contains(t, users.verified, user.ID)

	// Single use: the same token must not verify twice.
	_, err = svc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, _ := newTestService(t, newStubUserStore(), &stubEmailSender{})

	_, err := svc.VerifyEmail(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestResendVerificationSkipsVerifiedUsers(t *testing.T) {
	userID := uuid.New()
	users := newStubUserStore(repository.User{
		ID:            userID,
		Email:         "alice@example.com",
		EmailVerified: true,
	})
	emails := &stubEmailSender{}
	svc, _ := newTestService(t, users, emails)

	require.NoError(t, svc.ResendVerification(context.Background(), userID))
	assert.Empty(t, emails.verifications)
}

func TestInviteStoresTokenAndSendsEmail(t *testing.T) {
	emails := &stubEmailSender{}
	svc, mr := newTestService(t, newStubUserStore(), emails)

	require.NoError(t, svc.Invite(context.Background(), "newbie@example.com"))
	require.Len(t, emails.invites, 1)

	stored, err := mr.Get("invite:" + emails.lastToken)
	require.NoError(t, err)
	assert.Equal(t, "newbie@example.com", stored)
}

func TestRegisterWithInviteTokenSkipsVerification(t *testing.T) {
	users := newStubUserStore()
	emails := &stubEmailSender{}
	svc, mr := newTestService(t, users, emails)

	require.NoError(t, svc.Invite(context.Background(), "newbie@example.com"))
	token := emails.lastToken

	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "newbie@example.com",
		Password:    "correct-horse",
		DisplayName: "Newbie",
		InviteToken: token,
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)

	assert.True(t, user.EmailVerified)
	assert.Contains(t, users.verified, user.ID)
	assert.Empty(t, emails.verifications)

	// The token is single-use.
	_, err = mr.Get("invite:" + token)
	assert.Error(t, err)
}

func TestRegisterWithInviteTokenWrongEmail(t *testing.T) {
	users := newStubUserStore()
	emails := &stubEmailSender{}
	svc, mr := newTestService(t, users, emails)

	require.NoError(t, svc.Invite(context.Background(), "newbie@example.com"))
	token := emails.lastToken

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "other@example.com",
		Password:    "correct-horse",
		InviteToken: token,
	})
	assert.ErrorIs(t, err, ErrInvalidInvite)
	assert.Empty(t, users.byID)

	// Rejection leaves the invite redeemable by the right address.
	stored, err := mr.Get("invite:" + token)
	require.NoError(t, err)
	assert.Equal(t, "newbie@example.com", stored)
}

func TestRegisterWithUnknownInviteToken(t *testing.T) {
	svc, _ := newTestService(t, newStubUserStore(), &stubEmailSender{})

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "newbie@example.com",
		Password:    "correct-horse",
		InviteToken: "nope",
	})
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestSetAdminSendsGrantEmailOnce(t *testing.T) {
	userID := uuid.New()
	users := newStubUserStore(repository.User{
		ID:    userID,
		Email: "alice@example.com",
	})
	emails := &stubEmailSender{}
	svc, _ := newTestService(t, users, emails)

	require.NoError(t, svc.SetAdmin(context.Background(), userID, true))
	require.Len(t, emails.adminGrants, 1)

	// Re-granting an existing admin does not notify again.
	require.NoError(t, svc.SetAdmin(context.Background(), userID, true))
	assert.Len(t, emails.adminGrants, 1)

	require.NoError(t, svc.SetAdmin(context.Background(), userID, false))
	assert.Len(t, emails.adminGrants, 1)
	assert.False(t, users.byID[userID].IsAdmin)
}

func TestSetAdminUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, newStubUserStore(), &stubEmailSender{})

	err := svc.SetAdmin(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	userID := uuid.New()
	users := newStubUserStore(repository.User{ID: userID, Email: "alice@example.com"})
	svc, _ := newTestService(t, users, &stubEmailSender{})

	require.NoError(t, svc.DeleteUser(context.Background(), userID))
	assert.Contains(t, users.deleted, userID)

	err := svc.DeleteUser(context.Background(), userID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
