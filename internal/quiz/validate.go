package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTitle          = errors.New("quiz title required")
	ErrNoQuestions         = errors.New("quiz must contain at least one question")
	ErrNoCorrectAnswers    = errors.New("question must define at least one correct answer")
	ErrUnknownQuestionType = errors.New("unknown question type")
	ErrAnswerNotInOptions  = errors.New("correct answer missing from options")
)

// Validate checks quiz-level and per-question invariants before persistence.
func (qz *Quiz) Validate() error {
	if qz.Title == "" {
		return ErrEmptyTitle
	}
	if len(qz.Questions) == 0 {
		return ErrNoQuestions
	}
	for i := range qz.Questions {
		if err := qz.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %q: %w", qz.Questions[i].ID, err)
		}
	}
	return nil
}

// Validate enforces the question invariants: a non-empty correct-answer set,
// and for choice types every correct answer appearing in the option list.
func (q *Question) Validate() error {
	if len(q.CorrectAnswers) == 0 {
		return ErrNoCorrectAnswers
	}

	switch q.Type {
	case TypeMultipleChoice, TypeMultipleAnswer:
		opts := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			opts[o] = struct{}{}
		}
		for _, c := range q.CorrectAnswers {
			if _, ok := opts[c]; !ok {
				return fmt.Errorf("%w: %q", ErrAnswerNotInOptions, c)
			}
		}
	case TypeShortText:
		// no option list for free text
	default:
		return fmt.Errorf("%w: %q", ErrUnknownQuestionType, q.Type)
	}
	return nil
}
