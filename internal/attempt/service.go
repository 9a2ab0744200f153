// Package attempt runs the submission pipeline: validate the submitted
// answers against the quiz, score them, persist the result, then feed the
// leaderboard and gamification stages. The stages after persistence are
// best-effort; a stored result is never rolled back because a downstream
// stage failed.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/gamification"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/quiz"
	"github.com/quizdeck/quizdeck/internal/scoring"
)

var (
	ErrUnknownQuestion = errors.New("answer references unknown question")
	ErrNoAnswers       = errors.New("no answers submitted")
)

type quizSource interface {
	GetPublished(ctx context.Context, quizID uuid.UUID) (quiz.Quiz, error)
}

type resultStore interface {
	Insert(ctx context.Context, res quiz.Result) (quiz.Result, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]quiz.Result, error)
}

type scoreBoard interface {
	RecordResult(ctx context.Context, req leaderboard.RecordRequest) error
}

type progressUpdater interface {
	Update(ctx context.Context, in gamification.Input) (*gamification.Summary, error)
}

// Submission is one user's completed play-through, as sent by the client.
type Submission struct {
	UserID      uuid.UUID
	DisplayName string
	QuizID      uuid.UUID
	Answers     map[string]quiz.Answer
	TimeSpentMS int64
}

// QuestionOutcome is the per-question scoring breakdown returned to the
// client for the results screen.
type QuestionOutcome struct {
	QuestionID  string             `json:"question_id"`
	Score       float64            `json:"score"`
	Class       scoring.ScoreClass `json:"class"`
	Explanation string             `json:"explanation,omitempty"`
}

// Outcome is the full response for a graded submission.
type Outcome struct {
	Result    quiz.Result           `json:"result"`
	Questions []QuestionOutcome     `json:"questions"`
	Progress  *gamification.Summary `json:"progress,omitempty"`
}

// Service grades submissions and drives the post-submit pipeline.
type Service struct {
	quizzes  quizSource
	results  resultStore
	board    scoreBoard
	progress progressUpdater
	logger   zerolog.Logger
}

// NewService creates the submission service. board and progress may be nil;
// the corresponding pipeline stages are then skipped.
func NewService(quizzes quizSource, results resultStore, board scoreBoard, progress progressUpdater, logger zerolog.Logger) *Service {
	return &Service{
		quizzes:  quizzes,
		results:  results,
		board:    board,
		progress: progress,
		logger:   logger.With().Str("component", "attempt").Logger(),
	}
}

// Submit grades one submission. Unanswered questions score zero; answers for
// question IDs the quiz does not contain reject the whole submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if len(sub.Answers) == 0 {
		return nil, ErrNoAnswers
	}

	qz, err := s.quizzes.GetPublished(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	for questionID := range sub.Answers {
		if qz.Question(questionID) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
		}
	}

	var total float64
	outcomes := make([]QuestionOutcome, 0, len(qz.Questions))
	for _, q := range qz.Questions {
		score := scoring.Score(q, sub.Answers[q.ID])
		total += score

		out := QuestionOutcome{
			QuestionID: q.ID,
			Score:      score,
			Class:      scoring.Classify(score, q),
		}
		if out.Class == scoring.ClassPartial {
			out.Explanation = scoring.PartialExplanation(q, sub.Answers[q.ID])
		}
		outcomes = append(outcomes, out)
	}

	maxScore := float64(len(qz.Questions))
	completedAt := time.Now().UTC()

	result := quiz.Result{
		UserID:      sub.UserID,
		QuizID:      qz.ID,
		Score:       round2(total),
		MaxScore:    maxScore,
		Percentage:  percentage(total, maxScore),
		Answers:     sub.Answers,
		CompletedAt: completedAt,
		TimeSpentMS: sub.TimeSpentMS,
	}

	stored, err := s.results.Insert(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	outcome := &Outcome{
		Result:    stored,
		Questions: outcomes,
	}

	if s.board != nil {
		if err := s.board.RecordResult(ctx, leaderboard.RecordRequest{
			UserID:      sub.UserID,
			DisplayName: sub.DisplayName,
			Score:       stored.Score,
		}); err != nil {
			s.logger.Warn().Err(err).Str("user_id", sub.UserID.String()).Msg("leaderboard update failed")
		}
	}

	if s.progress != nil {
		summary, err := s.progress.Update(ctx, gamification.Input{
			UserID:      sub.UserID,
			Score:       stored.Score,
			MaxScore:    stored.MaxScore,
			CompletedAt: completedAt,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", sub.UserID.String()).Msg("gamification update failed")
		} else {
			outcome.Progress = summary
		}
	}

	s.logger.Info().
		Str("user_id", sub.UserID.String()).
		Str("quiz_id", qz.ID.String()).
		Float64("score", stored.Score).
		Float64("max_score", stored.MaxScore).
		Msg("attempt graded")

	return outcome, nil
}

// History lists the user's stored results, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]quiz.Result, error) {
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

func percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return math.Round(score/maxScore*10000) / 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
