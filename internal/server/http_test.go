package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/admin"
	"github.com/quizdeck/quizdeck/internal/auth"
	"github.com/quizdeck/quizdeck/internal/auth/jwt"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/db/repository"
)

type memUserStore struct {
	users map[uuid.UUID]repository.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]repository.User)}
}

func (s *memUserStore) Create(_ context.Context, params repository.CreateParams) (repository.User, error) {
	u := repository.User{ID: uuid.New(), Email: params.Email, DisplayName: params.DisplayName, PasswordHash: params.PasswordHash}
	s.users[u.ID] = u
	return u, nil
}

func (s *memUserStore) GetByID(_ context.Context, userID uuid.UUID) (repository.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]repository.User, error) {
	out := make([]repository.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memUserStore) UpdateLogin(_ context.Context, _ uuid.UUID) error { return nil }

func (s *memUserStore) SetAdmin(_ context.Context, userID uuid.UUID, isAdmin bool) error {
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsAdmin = isAdmin
	s.users[userID] = u
	return nil
}

func (s *memUserStore) SetEmailVerified(_ context.Context, userID uuid.UUID) error {
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	s.users[userID] = u
	return nil
}

func (s *memUserStore) Delete(_ context.Context, userID uuid.UUID) error {
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

var testTokenCfg = jwt.TokenConfig{
	AccessSecret:  []byte("test-access"),
	RefreshSecret: []byte("test-refresh"),
}

func newTestServer(t *testing.T) (http.Handler, *memUserStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemUserStore()
	authSvc := auth.NewService(store, client, nil, auth.ServiceOptions{TokenConfig: testTokenCfg}, zerolog.Nop())

	cfg := &config.App{HTTPAddr: ":0"}
	h := Handlers{
		Admin: admin.NewHandlers(authSvc, nil, zerolog.Nop()),
	}

	srv := NewHTTPServer(cfg, zerolog.Nop(), nil, nil, authSvc, nil, h)
	return srv.Handler, store
}

func bearerFor(t *testing.T, user jwt.User) string {
	t.Helper()
	token, err := jwt.NewManager(testTokenCfg).GenerateAccessToken(user)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAdminRegisterRequiresAdminClaim(t *testing.T) {
	handler, store := newTestServer(t)
	body := `{"email":"new@example.com","password":"long-enough","display_name":"New"}`

	// No token at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.users)

	// Authenticated but not admin.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, jwt.User{ID: uuid.New(), Email: "user@example.com", EmailVerified: true}))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.users)

	// Admin caller succeeds.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, jwt.User{ID: uuid.New(), Email: "admin@example.com", IsAdmin: true, EmailVerified: true}))
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.users, 1)
}

func TestAdminSurfaceRejectsAnonymous(t *testing.T) {
	handler, _ := newTestServer(t)

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/users/promote"},
		{http.MethodPost, "/api/users/demote"},
		{http.MethodDelete, "/api/users/" + uuid.NewString()},
		{http.MethodPost, "/api/users/invite"},
		{http.MethodPost, "/api/register"},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.target)
	}
}
