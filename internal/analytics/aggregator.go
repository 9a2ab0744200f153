package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

const leaderboardSize = 10

// Aggregator derives quiz statistics from a fixed snapshot of quizzes and
// results. All methods are pure reads over that snapshot; empty inputs yield
// zero values, never errors.
type Aggregator struct {
	quizzes []quiz.Quiz
	results []quiz.Result
}

// New builds an aggregator over the given snapshot. The slices are not
// copied; callers must not mutate them afterwards.
func New(quizzes []quiz.Quiz, results []quiz.Result) *Aggregator {
	return &Aggregator{quizzes: quizzes, results: results}
}

// Attempts returns how many results exist for a quiz.
func (a *Aggregator) Attempts(quizID uuid.UUID) int {
	return len(a.quizResults(quizID))
}

// AvgScore returns the mean raw score for a quiz, rounded to 2 decimals.
// Zero when the quiz has no attempts.
func (a *Aggregator) AvgScore(quizID uuid.UUID) float64 {
	rs := a.quizResults(quizID)
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Score
	}
	return math.Round(sum/float64(len(rs))*100) / 100
}

// AvgTime formats the mean time spent on a quiz: "<1s" under one second,
// whole seconds under a minute, otherwise minutes with one decimal.
// "0s" when the quiz has no attempts.
func (a *Aggregator) AvgTime(quizID uuid.UUID) string {
	rs := a.quizResults(quizID)
	if len(rs) == 0 {
		return "0s"
	}
	var sum int64
	for _, r := range rs {
		sum += r.TimeSpentMS
	}
	avgMS := float64(sum) / float64(len(rs))
	switch {
	case avgMS < 1000:
		return "<1s"
	case avgMS < 60000:
		return fmt.Sprintf("%ds", int(math.Round(avgMS/1000)))
	default:
		return fmt.Sprintf("%.1fm", avgMS/60000)
	}
}

// QuestionCorrectPct returns the percentage of attempts that answered the
// question fully correctly, rounded to the nearest integer. A multiple-answer
// submission only counts when it matches the correct set exactly; this is a
// stricter bar than the partial-credit scoring rule.
func (a *Aggregator) QuestionCorrectPct(quizID uuid.UUID, questionID string) int {
	q := a.question(quizID, questionID)
	if q == nil {
		return 0
	}
	rs := a.quizResults(quizID)
	if len(rs) == 0 {
		return 0
	}

	correct := 0
	for _, r := range rs {
		ans, ok := r.Answers[questionID]
		if !ok {
			continue
		}
		if answeredCorrectly(*q, ans) {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(rs)) * 100))
}

// MostMissedOption returns the correct option most often left unselected
// across all attempts at a question, or "" when nothing was missed. Only
// meaningful for choice questions.
func (a *Aggregator) MostMissedOption(quizID uuid.UUID, questionID string) string {
	q := a.question(quizID, questionID)
	if q == nil || len(q.Options) == 0 {
		return ""
	}
	rs := a.quizResults(quizID)
	if len(rs) == 0 {
		return ""
	}
	if q.Type != quiz.TypeMultipleChoice && q.Type != quiz.TypeMultipleAnswer {
		return ""
	}

	correct := make(map[string]struct{}, len(q.CorrectAnswers))
	for _, c := range q.CorrectAnswers {
		correct[c] = struct{}{}
	}

	missCounts := make(map[string]int, len(q.Options))
	for _, r := range rs {
		selected := selectedOptions(q.Type, r.Answers[questionID])
		for _, opt := range q.Options {
			if _, isCorrect := correct[opt]; !isCorrect {
				continue
			}
			if _, ok := selected[opt]; !ok {
				missCounts[opt]++
			}
		}
	}

	var best string
	bestCount := 0
	for _, opt := range q.Options {
		if missCounts[opt] > bestCount {
			best = opt
			bestCount = missCounts[opt]
		}
	}
	return best
}

// Entry is a derived leaderboard row; never persisted.
type Entry struct {
	UserID     uuid.UUID `json:"user_id"`
	TotalScore float64   `json:"total_score"`
}

// Leaderboard sums raw scores per user across all results and returns the
// top 10 in non-increasing order. Ties keep the relative order in which the
// users first appear in the result snapshot.
func (a *Aggregator) Leaderboard() []Entry {
	totals := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, r := range a.results {
		if _, seen := totals[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		totals[r.UserID] += r.Score
	}

	entries := make([]Entry, 0, len(order))
	for _, userID := range order {
		entries = append(entries, Entry{UserID: userID, TotalScore: totals[userID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

func (a *Aggregator) quizResults(quizID uuid.UUID) []quiz.Result {
	var rs []quiz.Result
	for _, r := range a.results {
		if r.QuizID == quizID {
			rs = append(rs, r)
		}
	}
	return rs
}

func (a *Aggregator) question(quizID uuid.UUID, questionID string) *quiz.Question {
	for i := range a.quizzes {
		if a.quizzes[i].ID == quizID {
			return a.quizzes[i].Question(questionID)
		}
	}
	return nil
}

// answeredCorrectly applies the reporting definition of correct: exact match
// for single-value types, exact set equality for multiple-answer.
func answeredCorrectly(q quiz.Question, ans quiz.Answer) bool {
	if len(q.CorrectAnswers) == 0 {
		return false
	}
	switch q.Type {
	case quiz.TypeMultipleChoice:
		return ans.Value != "" && ans.Value == q.CorrectAnswers[0]
	case quiz.TypeMultipleAnswer:
		if len(ans.Values) == 0 || len(ans.Values) != len(q.CorrectAnswers) {
			return false
		}
		correct := make(map[string]struct{}, len(q.CorrectAnswers))
		for _, c := range q.CorrectAnswers {
			correct[c] = struct{}{}
		}
		for _, v := range ans.Values {
			if _, ok := correct[v]; !ok {
				return false
			}
		}
		return true
	case quiz.TypeShortText:
		return normalizeText(ans.Value) == normalizeText(q.CorrectAnswers[0])
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func selectedOptions(t quiz.QuestionType, ans quiz.Answer) map[string]struct{} {
	selected := make(map[string]struct{})
	switch t {
	case quiz.TypeMultipleAnswer:
		for _, v := range ans.Values {
			selected[v] = struct{}{}
		}
	case quiz.TypeMultipleChoice:
		if ans.Value != "" {
			selected[ans.Value] = struct{}{}
		}
	}
	return selected
}
