package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

const quizColumns = `quiz_id, title, description, tags, published, questions, time_limit, created_at, updated_at`

// QuizRepository persists quizzes; questions are stored as a JSONB document
// alongside the quiz row.
type QuizRepository struct {
	db DBTX
}

// NewQuizRepository wraps a pgx pool (or transaction) for quiz operations.
func NewQuizRepository(db DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create inserts a quiz and returns it with the generated identifier.
func (r *QuizRepository) Create(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	questions, err := json.Marshal(qz.Questions)
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("encode questions: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO quizzes (title, description, tags, published, questions, time_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+quizColumns,
		qz.Title, qz.Description, qz.Tags, qz.Published, questions, qz.TimeLimit)
	return scanQuiz(row)
}

// GetByID fetches a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, quizID uuid.UUID) (quiz.Quiz, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE quiz_id = $1`, quizID)
	return scanQuiz(row)
}

// ListAll returns every quiz regardless of publication state.
func (r *QuizRepository) ListAll(ctx context.Context) ([]quiz.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at`)
}

// ListPublished returns quizzes visible to players.
func (r *QuizRepository) ListPublished(ctx context.Context) ([]quiz.Quiz, error) {
	return r.list(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE published ORDER BY created_at`)
}

// Update replaces mutable quiz fields.
func (r *QuizRepository) Update(ctx context.Context, qz quiz.Quiz) error {
	questions, err := json.Marshal(qz.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE quizzes
		SET title = $2, description = $3, tags = $4, published = $5, questions = $6,
		    time_limit = $7, updated_at = now()
		WHERE quiz_id = $1`,
		qz.ID, qz.Title, qz.Description, qz.Tags, qz.Published, questions, qz.TimeLimit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPublished flips the publication flag.
func (r *QuizRepository) SetPublished(ctx context.Context, quizID uuid.UUID, published bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quizzes SET published = $2, updated_at = now() WHERE quiz_id = $1`,
		quizID, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a quiz.
func (r *QuizRepository) Delete(ctx context.Context, quizID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quizzes WHERE quiz_id = $1`, quizID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *QuizRepository) list(ctx context.Context, query string) ([]quiz.Quiz, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []quiz.Quiz
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, qz)
	}
	return quizzes, rows.Err()
}

func scanQuiz(row interface{ Scan(...any) error }) (quiz.Quiz, error) {
	var (
		qz        quiz.Quiz
		questions []byte
	)
	err := row.Scan(&qz.ID, &qz.Title, &qz.Description, &qz.Tags, &qz.Published,
		&questions, &qz.TimeLimit, &qz.CreatedAt, &qz.UpdatedAt)
	if err != nil {
		return quiz.Quiz{}, notFound(err)
	}
	if err := json.Unmarshal(questions, &qz.Questions); err != nil {
		return quiz.Quiz{}, fmt.Errorf("decode questions: %w", err)
	}
	return qz, nil
}
