package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

var (
	quizID = uuid.New()
	userA  = uuid.New()
	userB  = uuid.New()
	userC  = uuid.New()
)

func snapshotQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:        quizID,
		Title:     "Geography",
		Published: true,
		Questions: []quiz.Question{
			{
				ID:             "q1",
				Type:           quiz.TypeMultipleChoice,
				Prompt:         "Capital of France?",
				Options:        []string{"Paris", "Lyon"},
				CorrectAnswers: []string{"Paris"},
			},
			{
				ID:             "q2",
				Type:           quiz.TypeMultipleAnswer,
				Prompt:         "Which are in Europe?",
				Options:        []string{"France", "Spain", "Peru", "Chad"},
				CorrectAnswers: []string{"France", "Spain"},
			},
		},
	}
}

func result(userID uuid.UUID, score float64, timeMS int64, answers map[string]quiz.Answer) quiz.Result {
	return quiz.Result{
		ID:          uuid.New(),
		UserID:      userID,
		QuizID:      quizID,
		Score:       score,
		MaxScore:    2,
		Answers:     answers,
		CompletedAt: time.Now(),
		TimeSpentMS: timeMS,
	}
}

func TestEmptySnapshotNeverPanics(t *testing.T) {
	agg := New(nil, nil)

	assert.Equal(t, 0, agg.Attempts(quizID))
	assert.Equal(t, 0.0, agg.AvgScore(quizID))
	assert.Equal(t, "0s", agg.AvgTime(quizID))
	assert.Equal(t, 0, agg.QuestionCorrectPct(quizID, "q1"))
	assert.Equal(t, "", agg.MostMissedOption(quizID, "q2"))
	assert.Empty(t, agg.Leaderboard())
}

func TestAttemptsAndAvgScore(t *testing.T) {
	results := []quiz.Result{
		result(userA, 2, 5000, nil),
		result(userA, 1, 5000, nil),
		result(userB, 1.5, 5000, nil),
	}
	agg := New([]quiz.Quiz{snapshotQuiz()}, results)

	assert.Equal(t, 3, agg.Attempts(quizID))
	assert.Equal(t, 1.5, agg.AvgScore(quizID))
	assert.Equal(t, 0, agg.Attempts(uuid.New()))
}

func TestAvgTimeFormatting(t *testing.T) {
	cases := []struct {
		name string
		ms   []int64
		want string
	}{
		{"sub second", []int64{400, 600}, "<1s"},
		{"seconds", []int64{14000, 16000}, "15s"},
		{"minutes", []int64{90000}, "1.5m"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var results []quiz.Result
			for _, ms := range tc.ms {
				results = append(results, result(userA, 1, ms, nil))
			}
			agg := New([]quiz.Quiz{snapshotQuiz()}, results)
			assert.Equal(t, tc.want, agg.AvgTime(quizID))
		})
	}
}

func TestQuestionCorrectPctStrictForMultipleAnswer(t *testing.T) {
	results := []quiz.Result{
		// fully correct set
		result(userA, 2, 5000, map[string]quiz.Answer{
			"q1": {Value: "Paris"},
			"q2": {Values: []string{"France", "Spain"}},
		}),
		// partially correct set: credit under scoring, incorrect here
		result(userB, 1.5, 5000, map[string]quiz.Answer{
			"q1": {Value: "Paris"},
			"q2": {Values: []string{"France"}},
		}),
		// wrong everything
		result(userC, 0, 5000, map[string]quiz.Answer{
			"q1": {Value: "Lyon"},
			"q2": {Values: []string{"Peru"}},
		}),
	}
	agg := New([]quiz.Quiz{snapshotQuiz()}, results)

	assert.Equal(t, 67, agg.QuestionCorrectPct(quizID, "q1"))
	assert.Equal(t, 33, agg.QuestionCorrectPct(quizID, "q2"))
	assert.Equal(t, 0, agg.QuestionCorrectPct(quizID, "missing"))
}

func TestQuestionCorrectPctEmptyCorrectAnswers(t *testing.T) {
	// A question without a correct answer counts every submission as
	// incorrect rather than panicking on an out-of-range index.
	q := snapshotQuiz()
	q.Questions[0].CorrectAnswers = nil
	q.Questions[1].CorrectAnswers = nil
	results := []quiz.Result{
		result(userA, 0, 5000, map[string]quiz.Answer{
			"q1": {Value: "Paris"},
			"q2": {Values: []string{"France", "Spain"}},
		}),
	}
	agg := New([]quiz.Quiz{q}, results)

	assert.Equal(t, 0, agg.QuestionCorrectPct(quizID, "q1"))
	assert.Equal(t, 0, agg.QuestionCorrectPct(quizID, "q2"))
}

func TestMostMissedOption(t *testing.T) {
	results := []quiz.Result{
		result(userA, 1, 5000, map[string]quiz.Answer{
			"q2": {Values: []string{"France"}}, // missed Spain
		}),
		result(userB, 1, 5000, map[string]quiz.Answer{
			"q2": {Values: []string{"France"}}, // missed Spain
		}),
		result(userC, 1, 5000, map[string]quiz.Answer{
			"q2": {Values: []string{"Spain"}}, // missed France
		}),
	}
	agg := New([]quiz.Quiz{snapshotQuiz()}, results)

	assert.Equal(t, "Spain", agg.MostMissedOption(quizID, "q2"))
}

func TestMostMissedOptionEmptyWhenNoneMissed(t *testing.T) {
	results := []quiz.Result{
		result(userA, 2, 5000, map[string]quiz.Answer{
			"q2": {Values: []string{"France", "Spain"}},
		}),
	}
	agg := New([]quiz.Quiz{snapshotQuiz()}, results)

	assert.Equal(t, "", agg.MostMissedOption(quizID, "q2"))
	assert.Equal(t, "", agg.MostMissedOption(quizID, "nope"))
}

func TestLeaderboardTopTenSortedStable(t *testing.T) {
	var results []quiz.Result
	users := make([]uuid.UUID, 12)
	for i := range users {
		users[i] = uuid.New()
		results = append(results, result(users[i], float64(i), 1000, nil))
	}
	// tie: first two users both end up with score 20
	results = append(results, result(users[0], 20, 1000, nil))
	results = append(results, result(users[1], 19, 1000, nil))

	agg := New([]quiz.Quiz{snapshotQuiz()}, results)
	lb := agg.Leaderboard()

	assert.Len(t, lb, 10)
	for i := 1; i < len(lb); i++ {
		assert.GreaterOrEqual(t, lb[i-1].TotalScore, lb[i].TotalScore)
	}
	// users[0] and users[1] both total 20; users[0] appeared first
	assert.Equal(t, users[0], lb[0].UserID)
	assert.Equal(t, users[1], lb[1].UserID)
}
