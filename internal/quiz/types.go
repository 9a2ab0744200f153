package quiz

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType discriminates how a question is answered and scored.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple-choice" // one correct option
	TypeMultipleAnswer QuestionType = "multiple-answer" // several correct options, partial credit
	TypeShortText      QuestionType = "short-text"      // free text, exact match
)

// Question is a single quiz question. For choice types every correct answer
// must appear in Options; CorrectAnswers is never empty.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []string     `json:"correct_answers"`
	Explanation    string       `json:"explanation,omitempty"`
}

// Quiz is an ordered set of questions with publishing metadata.
type Quiz struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Published   bool       `json:"published"`
	Questions   []Question `json:"questions"`
	TimeLimit   int        `json:"time_limit,omitempty"` // seconds, 0 = untimed
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Answer is the submitted answer for one question. The populated field is
// keyed by the question type: Value for multiple-choice and short-text,
// Values for multiple-answer.
type Answer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Result is one user's completed play-through of one quiz. Immutable once
// persisted.
type Result struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	QuizID      uuid.UUID         `json:"quiz_id"`
	Score       float64           `json:"score"`
	MaxScore    float64           `json:"max_score"`
	Percentage  float64           `json:"percentage"`
	Answers     map[string]Answer `json:"answers"`
	CompletedAt time.Time         `json:"completed_at"`
	TimeSpentMS int64             `json:"time_spent_ms"`
}

// Question lookup by ID; nil when absent.
func (q *Quiz) Question(questionID string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}
