package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/admin"
	"github.com/quizdeck/quizdeck/internal/analytics"
	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/auth"
	"github.com/quizdeck/quizdeck/internal/auth/jwt"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/db/repository"
	"github.com/quizdeck/quizdeck/internal/email"
	"github.com/quizdeck/quizdeck/internal/gamification"
	"github.com/quizdeck/quizdeck/internal/guard"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/logging"
	"github.com/quizdeck/quizdeck/internal/quiz"
	"github.com/quizdeck/quizdeck/internal/server"
	"github.com/quizdeck/quizdeck/internal/session"
	ws "github.com/quizdeck/quizdeck/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	lbBroadcaster   *leaderboard.Broadcaster
	authBroadcaster *session.Broadcaster
	snapshotWorker  *leaderboard.SnapshotWorker
	bgCancels       []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	userRepo := repository.NewUserRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be configured")
	}

	var emailSvc *email.Service
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewService(email.Config{
			SMTPHost:     cfg.SMTP.Host,
			SMTPPort:     cfg.SMTP.Port,
			SMTPUsername: cfg.SMTP.Username,
			SMTPPassword: cfg.SMTP.Password,
			FromEmail:    cfg.SMTP.FromEmail,
			BaseURL:      cfg.BaseURL,
		}, logger)
	} else {
		logger.Warn().Msg("SMTP not configured; verification and invite emails disabled")
	}

	tokenCfg := jwt.TokenConfig{
		AccessSecret:  []byte(cfg.Security.JWTSecret),
		RefreshSecret: []byte(cfg.Security.JWTSecret + "_refresh"),
		Issuer:        cfg.Name,
	}

	var authEmails auth.EmailSender
	if emailSvc != nil {
		authEmails = emailSvc
	}
	authSvc := auth.NewService(userRepo, redisClient, authEmails, auth.ServiceOptions{
		TokenConfig:          tokenCfg,
		VerificationTokenTTL: cfg.Security.VerificationTokenTTL,
		InviteTokenTTL:       cfg.Security.InviteTokenTTL,
	}, logger)

	var oauthSvc *auth.OAuthService
	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		redirectURL := cfg.OAuth.GoogleRedirectURL
		if redirectURL == "" {
			redirectURL = cfg.BaseURL + "/v1/auth/oauth/google/callback"
		}
		oauthSvc = auth.NewOAuthService(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			redirectURL,
			logger,
		)
		logger.Info().Msg("OAuth service initialized")
	} else {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID or GOOGLE_OAUTH_CLIENT_SECRET)")
	}

	quizSvc := quiz.NewService(quizRepo, logger)

	progressUpdater := gamification.NewUpdater(userRepo, resultRepo, gamification.Options{
		XPPerCorrect:     cfg.Gamification.XPPerCorrect,
		XPCompletionBase: cfg.Gamification.XPCompletionBase,
		XPPerLevel:       cfg.Gamification.XPPerLevel,
	}, logger)

	leaderboardSvc := leaderboard.NewService(redisClient, resultRepo, logger, leaderboard.ServiceOptions{
		TopN: cfg.Leaderboard.TopN,
	})

	attemptSvc := attempt.NewService(quizSvc, resultRepo, leaderboardSvc, progressUpdater, logger)

	wsHub := ws.NewHub(logger)
	notifier := session.NewNotifier(redisClient, "", logger)

	handlers := server.Handlers{
		Auth:        auth.NewHTTPHandlers(authSvc, oauthSvc, notifier, logger),
		Guard:       guard.NewHTTPHandlers(logger),
		Quiz:        quiz.NewHTTPHandlers(quizSvc, logger),
		Attempt:     attempt.NewHTTPHandlers(attemptSvc, logger),
		Leaderboard: leaderboard.NewHTTPHandler(leaderboardSvc, logger),
		Analytics:   analytics.NewHTTPHandlers(quizRepo, resultRepo, logger),
		Admin:       admin.NewHandlers(authSvc, notifier, logger),
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, authSvc, wsHub, handlers)

	var snapshotWorker *leaderboard.SnapshotWorker
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker = leaderboard.NewSnapshotWorker(
			leaderboardSvc,
			snapshotRepo,
			interval,
			cfg.Leaderboard.TopN,
			logger,
		)
	}

	return &Application{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		http:            apiServer,
		lbBroadcaster:   leaderboard.NewBroadcaster(redisClient, wsHub, leaderboardSvc.Channel(), logger),
		authBroadcaster: session.NewBroadcaster(redisClient, wsHub, "", logger),
		snapshotWorker:  snapshotWorker,
		bgCancels:       make([]context.CancelFunc, 0, 3),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	run := func(name string, runner interface {
		Run(ctx context.Context) error
	}) {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := runner.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
			}
		}()
	}

	if a.lbBroadcaster != nil {
		run("leaderboard_broadcaster", a.lbBroadcaster)
	}
	if a.authBroadcaster != nil {
		run("session_broadcaster", a.authBroadcaster)
	}
	if a.snapshotWorker != nil {
		run("leaderboard_snapshot", a.snapshotWorker)
	}
}
