package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/admin"
	"github.com/quizdeck/quizdeck/internal/analytics"
	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/auth"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/guard"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/quiz"
	"github.com/quizdeck/quizdeck/internal/session"
	ws "github.com/quizdeck/quizdeck/pkg/http/ws"
)

// WSUpgrader handles WebSocket upgrades. Origin checking mirrors the CORS
// allowlist, applied in NewHTTPServer.
var WSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handlers groups the HTTP surfaces the server mounts.
type Handlers struct {
	Auth        *auth.HTTPHandlers
	Guard       *guard.HTTPHandlers
	Quiz        *quiz.HTTPHandlers
	Attempt     *attempt.HTTPHandlers
	Leaderboard *leaderboard.HTTPHandler
	Analytics   *analytics.HTTPHandlers
	Admin       *admin.Handlers
}

// NewHTTPServer wires all routes behind the auth and CORS middleware.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, authSvc *auth.Service, hub *ws.Hub, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Auth
	if h.Auth != nil {
		mux.HandleFunc("POST /v1/auth/register", h.Auth.Register)
		mux.HandleFunc("POST /v1/auth/login", h.Auth.Login)
		mux.Handle("POST /v1/auth/logout", auth.RequireAuth(http.HandlerFunc(h.Auth.Logout)))
		mux.HandleFunc("POST /v1/auth/refresh", h.Auth.RefreshToken)
		mux.HandleFunc("POST /v1/auth/verify-email", h.Auth.VerifyEmail)
		mux.HandleFunc("POST /v1/auth/resend-verification", h.Auth.ResendVerification)
		mux.HandleFunc("GET /v1/auth/oauth/{provider}", h.Auth.OAuthStart)
		mux.HandleFunc("GET /v1/auth/oauth/{provider}/callback", h.Auth.OAuthCallback)
		mux.Handle("GET /v1/users/me", auth.RequireAuth(http.HandlerFunc(h.Auth.GetMe)))
	}

	// Navigation guard
	if h.Guard != nil {
		mux.HandleFunc("GET /v1/navigate", h.Guard.Navigate)
	}

	// Quiz catalog and submissions
	if h.Quiz != nil {
		mux.HandleFunc("GET /v1/quizzes", h.Quiz.ListPublished)
		mux.HandleFunc("GET /v1/quizzes/{id}", h.Quiz.GetPublished)

		mux.Handle("GET /v1/admin/quizzes", adminOnly(h.Quiz.ListAll))
		mux.Handle("POST /v1/admin/quizzes", adminOnly(h.Quiz.Create))
		mux.Handle("GET /v1/admin/quizzes/{id}", adminOnly(h.Quiz.Get))
		mux.Handle("PUT /v1/admin/quizzes/{id}", adminOnly(h.Quiz.Update))
		mux.Handle("POST /v1/admin/quizzes/{id}/publish", adminOnly(h.Quiz.SetPublished))
		mux.Handle("DELETE /v1/admin/quizzes/{id}", adminOnly(h.Quiz.Delete))
	}

	if h.Attempt != nil {
		mux.Handle("POST /v1/quizzes/{id}/submit", auth.RequireVerified(http.HandlerFunc(h.Attempt.Submit)))
		mux.Handle("GET /v1/results", auth.RequireAuth(http.HandlerFunc(h.Attempt.History)))
	}

	if h.Leaderboard != nil {
		mux.Handle("GET /v1/leaderboard", auth.RequireAuth(http.HandlerFunc(h.Leaderboard.HandleGet)))
	}

	if h.Analytics != nil {
		mux.Handle("GET /v1/admin/analytics", adminOnly(h.Analytics.Overview))
		mux.Handle("GET /v1/admin/analytics/quizzes/{id}", adminOnly(h.Analytics.QuizDetail))
	}

	// Admin façade with its flat success/error envelope
	if h.Admin != nil {
		mux.Handle("GET /api/users", adminOnly(h.Admin.ListUsers))
		mux.Handle("POST /api/users/promote", adminOnly(h.Admin.Promote))
		mux.Handle("POST /api/users/demote", adminOnly(h.Admin.Demote))
		mux.Handle("DELETE /api/users/{id}", adminOnly(h.Admin.DeleteUser))
		mux.Handle("POST /api/users/invite", adminOnly(h.Admin.Invite))
		mux.Handle("POST /api/register", adminOnly(h.Admin.Register))
	}

	// WebSocket endpoint for auth and leaderboard push events
	if hub != nil {
		mux.HandleFunc("GET /ws", wsHandler(hub, cfg, logger))
	}

	handler := corsMiddleware(cfg.CORS)(mux)
	if authSvc != nil {
		handler = auth.Middleware(authSvc, logger)(handler)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func adminOnly(h http.HandlerFunc) http.Handler {
	return auth.RequireAdmin(http.HandlerFunc(h))
}

// wsHandler upgrades the connection and pumps messages. Authenticated
// clients are indexed by user so per-user auth events reach every tab.
// Each connection carries a session gate so navigate requests never run
// against an unresolved session.
func wsHandler(hub *ws.Hub, cfg *config.App, logger zerolog.Logger) http.HandlerFunc {
	upgrader := WSUpgrader
	upgrader.CheckOrigin = originChecker(cfg.CORS.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		state := session.State{}
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			state = session.State{
				UserID:        claims.UserID,
				Authenticated: true,
				EmailVerified: claims.EmailVerified,
				IsAdmin:       claims.IsAdmin,
			}
		}

		rawConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		connID := uuid.New()
		conn := ws.NewConnection(rawConn, logger)
		hub.Register(connID, state.UserID, conn)

		gate := session.NewGate()
		gate.Resolve(state)

		go conn.WritePump()
		conn.ReadPump(func(msg ws.Message) error {
			switch msg.Type {
			case ws.TypePing:
				return conn.Send(ws.Message{Type: ws.TypePong})
			case ws.TypeNavigate:
				return handleNavigate(r.Context(), gate, conn, msg)
			}
			return nil
		})

		hub.Unregister(connID, state.UserID)
	}
}

func handleNavigate(ctx context.Context, gate *session.Gate, conn *ws.Connection, msg ws.Message) error {
	var req ws.NavigatePayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.To == "" {
		raw, _ := json.Marshal(ws.ErrorPayload{Code: "invalid_payload", Message: "navigate requires a 'to' route"})
		return conn.Send(ws.Message{Type: ws.TypeError, Payload: raw})
	}

	state, err := gate.Await(ctx)
	if err != nil {
		return err
	}

	decision := guard.Decide(guard.State{
		Authenticated: state.Authenticated,
		EmailVerified: state.EmailVerified,
		IsAdmin:       state.IsAdmin,
	}, req.To)

	raw, err := json.Marshal(ws.NavigateResultPayload{
		To:         req.To,
		Allow:      decision.Allow,
		RedirectTo: decision.RedirectTo,
	})
	if err != nil {
		return err
	}
	return conn.Send(ws.Message{Type: ws.TypeNavigateResult, Payload: raw})
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	allowOrigin := func(origin string) bool {
		for _, a := range cfg.AllowedOrigins {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redisClient.Ping(ctx).Err()
}
