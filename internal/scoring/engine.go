package scoring

import (
	"math"
	"strings"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

// Score computes the credit for a single answer, always in [0, 1].
//   - multiple-choice: 1 if the submitted value equals the sole correct answer
//   - multiple-answer: partial credit |S∩C|/|C| − |S\C|/|O|, floored at 0,
//     rounded to 2 decimals
//   - short-text: case-insensitive, whitespace-trimmed exact match
//
// Unrecognized question types score 0; Score never returns an error.
func Score(q quiz.Question, ans quiz.Answer) float64 {
	switch q.Type {
	case quiz.TypeMultipleChoice:
		if len(q.CorrectAnswers) == 0 {
			return 0
		}
		if ans.Value != "" && ans.Value == q.CorrectAnswers[0] {
			return 1
		}
		return 0

	case quiz.TypeMultipleAnswer:
		totalCorrect := len(q.CorrectAnswers)
		totalOptions := len(q.Options)
		if totalCorrect == 0 || totalOptions == 0 {
			return 0
		}
		correct := make(map[string]struct{}, totalCorrect)
		for _, c := range q.CorrectAnswers {
			correct[c] = struct{}{}
		}
		var correctSelected, incorrectSelected int
		for _, a := range ans.Values {
			if _, ok := correct[a]; ok {
				correctSelected++
			} else {
				incorrectSelected++
			}
		}
		partial := float64(correctSelected)/float64(totalCorrect) -
			float64(incorrectSelected)/float64(totalOptions)
		if partial < 0 {
			partial = 0
		}
		return round2(partial)

	case quiz.TypeShortText:
		if len(q.CorrectAnswers) == 0 {
			return 0
		}
		if normalize(ans.Value) == normalize(q.CorrectAnswers[0]) {
			return 1
		}
		return 0
	}
	return 0
}

// ScoreClass maps a question score to a presentation class.
type ScoreClass string

const (
	ClassFull    ScoreClass = "full"
	ClassPartial ScoreClass = "partial"
	ClassZero    ScoreClass = "zero"
)

// Classify returns the presentation class for a scored question. Partial
// credit only exists for multiple-answer questions.
func Classify(score float64, q quiz.Question) ScoreClass {
	if q.Type == quiz.TypeMultipleAnswer && score > 0 && score < 1 {
		return ClassPartial
	}
	if score >= 1 {
		return ClassFull
	}
	return ClassZero
}

// PartialExplanation describes what a multiple-answer submission got wrong:
// correct options that were missed and options that were wrongly selected.
// Empty for other question types and for fully correct submissions.
func PartialExplanation(q quiz.Question, ans quiz.Answer) string {
	if q.Type != quiz.TypeMultipleAnswer {
		return ""
	}

	selected := make(map[string]struct{}, len(ans.Values))
	for _, a := range ans.Values {
		selected[a] = struct{}{}
	}
	correct := make(map[string]struct{}, len(q.CorrectAnswers))
	for _, c := range q.CorrectAnswers {
		correct[c] = struct{}{}
	}

	var missed, incorrect []string
	for _, c := range q.CorrectAnswers {
		if _, ok := selected[c]; !ok {
			missed = append(missed, c)
		}
	}
	for _, a := range ans.Values {
		if _, ok := correct[a]; !ok {
			incorrect = append(incorrect, a)
		}
	}

	if len(missed) == 0 && len(incorrect) == 0 {
		return ""
	}

	var b strings.Builder
	if len(missed) > 0 {
		b.WriteString("Missed correct: " + strings.Join(missed, ", ") + ". ")
	}
	if len(incorrect) > 0 {
		b.WriteString("Incorrectly selected: " + strings.Join(incorrect, ", ") + ".")
	}
	return strings.TrimSpace(b.String())
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
