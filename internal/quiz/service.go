package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is the storage-level sentinel quiz stores return for a
	// missing row. The service maps it to the operation-specific errors
	// below before it reaches a handler.
	ErrNotFound = errors.New("not found")

	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotPublished = errors.New("quiz not published")
)

type quizStore interface {
	Create(ctx context.Context, qz Quiz) (Quiz, error)
	GetByID(ctx context.Context, quizID uuid.UUID) (Quiz, error)
	ListAll(ctx context.Context) ([]Quiz, error)
	ListPublished(ctx context.Context) ([]Quiz, error)
	Update(ctx context.Context, qz Quiz) error
	SetPublished(ctx context.Context, quizID uuid.UUID, published bool) error
	Delete(ctx context.Context, quizID uuid.UUID) error
}

// Service manages the quiz catalog. Reads come in two shapes: the player
// surface only sees published quizzes, the admin surface sees everything.
type Service struct {
	quizzes quizStore
	logger  zerolog.Logger
}

// NewService creates a quiz catalog service.
func NewService(quizzes quizStore, logger zerolog.Logger) *Service {
	return &Service{
		quizzes: quizzes,
		logger:  logger.With().Str("component", "quiz").Logger(),
	}
}

// Create validates and stores a new quiz. New quizzes start unpublished.
func (s *Service) Create(ctx context.Context, qz Quiz) (Quiz, error) {
	if err := qz.Validate(); err != nil {
		return Quiz{}, err
	}
	qz.Published = false

	created, err := s.quizzes.Create(ctx, qz)
	if err != nil {
		return Quiz{}, fmt.Errorf("create quiz: %w", err)
	}

	s.logger.Info().Str("quiz_id", created.ID.String()).Str("title", created.Title).Msg("quiz created")
	return created, nil
}

// Get fetches a quiz by ID regardless of publish state.
func (s *Service) Get(ctx context.Context, quizID uuid.UUID) (Quiz, error) {
	qz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	return qz, nil
}

// GetPublished fetches a quiz for play. Unpublished quizzes are invisible to
// players even with a direct ID.
func (s *Service) GetPublished(ctx context.Context, quizID uuid.UUID) (Quiz, error) {
	qz, err := s.Get(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if !qz.Published {
		return Quiz{}, ErrQuizNotPublished
	}
	return qz, nil
}

// ListPublished returns the player-visible catalog.
func (s *Service) ListPublished(ctx context.Context) ([]Quiz, error) {
	return s.quizzes.ListPublished(ctx)
}

// ListAll returns the full catalog for the admin surface.
func (s *Service) ListAll(ctx context.Context) ([]Quiz, error) {
	return s.quizzes.ListAll(ctx)
}

// Update replaces a quiz document. The publish flag is preserved from the
// stored row; use SetPublished to change it.
func (s *Service) Update(ctx context.Context, qz Quiz) (Quiz, error) {
	if err := qz.Validate(); err != nil {
		return Quiz{}, err
	}

	current, err := s.Get(ctx, qz.ID)
	if err != nil {
		return Quiz{}, err
	}
	qz.Published = current.Published
	qz.CreatedAt = current.CreatedAt

	if err := s.quizzes.Update(ctx, qz); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, fmt.Errorf("update quiz: %w", err)
	}

	s.logger.Info().Str("quiz_id", qz.ID.String()).Msg("quiz updated")
	return s.Get(ctx, qz.ID)
}

// SetPublished toggles player visibility.
func (s *Service) SetPublished(ctx context.Context, quizID uuid.UUID, published bool) error {
	if err := s.quizzes.SetPublished(ctx, quizID, published); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("set published: %w", err)
	}
	s.logger.Info().Str("quiz_id", quizID.String()).Bool("published", published).Msg("quiz publish state changed")
	return nil
}

// Delete removes a quiz and, via the schema cascade, its stored results.
func (s *Service) Delete(ctx context.Context, quizID uuid.UUID) error {
	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.logger.Info().Str("quiz_id", quizID.String()).Msg("quiz deleted")
	return nil
}
