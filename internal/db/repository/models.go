package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

// ErrNotFound is returned when a row does not exist. It is the domain
// package's storage sentinel, so service layers can match on it without
// depending on this package.
var ErrNotFound = quiz.ErrNotFound

// DBTX is the subset of pgx operations the repositories need. Satisfied by
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Streak tracks consecutive calendar days with at least one completed
// attempt. LastDate is a UTC day in YYYY-MM-DD form.
type Streak struct {
	Count    int    `json:"count"`
	LastDate string `json:"last_date"`
	Longest  int    `json:"longest"`
}

// User is a stored user profile row.
type User struct {
	ID            uuid.UUID
	Email         string
	DisplayName   string
	PasswordHash  string
	IsAdmin       bool
	EmailVerified bool
	XP            int
	Badges        []string
	Streak        Streak
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
