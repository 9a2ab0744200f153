package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

const resultColumns = `result_id, user_id, quiz_id, score, max_score, percentage, answers, completed_at, time_spent_ms`

// ResultRepository persists completed attempts. Results are insert-only;
// there are no update operations.
type ResultRepository struct {
	db DBTX
}

// NewResultRepository wraps a pgx pool (or transaction) for result operations.
func NewResultRepository(db DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert stores a completed attempt and returns it with the generated
// identifier.
func (r *ResultRepository) Insert(ctx context.Context, res quiz.Result) (quiz.Result, error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return quiz.Result{}, fmt.Errorf("encode answers: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO results (user_id, quiz_id, score, max_score, percentage, answers, completed_at, time_spent_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+resultColumns,
		res.UserID, res.QuizID, res.Score, res.MaxScore, res.Percentage,
		answers, res.CompletedAt, res.TimeSpentMS)
	return scanResult(row)
}

// GetByID fetches a single result.
func (r *ResultRepository) GetByID(ctx context.Context, resultID uuid.UUID) (quiz.Result, error) {
	row := r.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE result_id = $1`, resultID)
	return scanResult(row)
}

// ListByUser returns a user's full attempt history, oldest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]quiz.Result, error) {
	return r.list(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id = $1 ORDER BY completed_at`, userID)
}

// ListByQuiz returns all attempts at one quiz, oldest first.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]quiz.Result, error) {
	return r.list(ctx, `SELECT `+resultColumns+` FROM results WHERE quiz_id = $1 ORDER BY completed_at`, quizID)
}

// ListAll returns every stored result, oldest first. Feeds analytics
// snapshots.
func (r *ResultRepository) ListAll(ctx context.Context) ([]quiz.Result, error) {
	return r.list(ctx, `SELECT `+resultColumns+` FROM results ORDER BY completed_at`)
}

func (r *ResultRepository) list(ctx context.Context, query string, args ...any) ([]quiz.Result, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []quiz.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanResult(row interface{ Scan(...any) error }) (quiz.Result, error) {
	var (
		res     quiz.Result
		answers []byte
	)
	err := row.Scan(&res.ID, &res.UserID, &res.QuizID, &res.Score, &res.MaxScore,
		&res.Percentage, &answers, &res.CompletedAt, &res.TimeSpentMS)
	if err != nil {
		return quiz.Result{}, notFound(err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return quiz.Result{}, fmt.Errorf("decode answers: %w", err)
	}
	return res, nil
}
