package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const userColumns = `user_id, email, display_name, password_hash, is_admin, email_verified,
	xp, badges, streak_count, streak_last_date, streak_longest, created_at, last_login_at`

// UserRepository exposes typed DB operations over user profiles.
type UserRepository struct {
	db DBTX
}

// NewUserRepository wraps a pgx pool (or transaction) for user operations.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateParams carries the fields required to insert a new profile.
type CreateParams struct {
	Email         string
	DisplayName   string
	PasswordHash  string
	IsAdmin       bool
	EmailVerified bool
}

// Create inserts a new user profile and returns the stored row.
func (r *UserRepository) Create(ctx context.Context, params CreateParams) (User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, display_name, password_hash, is_admin, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		params.Email, params.DisplayName, params.PasswordHash, params.IsAdmin, params.EmailVerified)
	return scanUser(row)
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	return scanUser(row)
}

// GetByEmail fetches a user by email if present.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// List returns all user profiles ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateLogin records the last login timestamp.
func (r *UserRepository) UpdateLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE user_id = $1`, userID)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE user_id = $1`, userID, hash)
	return err
}

// SetAdmin flips the admin claim for promote/demote actions.
func (r *UserRepository) SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE user_id = $1`, userID, isAdmin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEmailVerified marks the user's email as verified.
func (r *UserRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE user_id = $1`, userID)
	return err
}

// Delete removes a user profile.
func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateXP stores the new experience total. Independent write; callers own
// read-modify-write sequencing.
func (r *UserRepository) UpdateXP(ctx context.Context, userID uuid.UUID, xp int) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET xp = $2 WHERE user_id = $1`, userID, xp)
	return err
}

// UpdateStreak stores the full streak record.
func (r *UserRepository) UpdateStreak(ctx context.Context, userID uuid.UUID, streak Streak) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET streak_count = $2, streak_last_date = $3, streak_longest = $4
		WHERE user_id = $1`,
		userID, streak.Count, streak.LastDate, streak.Longest)
	return err
}

// AddBadge appends a badge if not already held; re-grants are no-ops.
func (r *UserRepository) AddBadge(ctx context.Context, userID uuid.UUID, badge string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET badges = array_append(badges, $2)
		WHERE user_id = $1 AND NOT ($2 = ANY(badges))`,
		userID, badge)
	return err
}

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsAdmin, &u.EmailVerified,
		&u.XP, &u.Badges, &u.Streak.Count, &u.Streak.LastDate, &u.Streak.Longest,
		&u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}
