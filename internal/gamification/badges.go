package gamification

// Stats is the snapshot a badge criterion is evaluated against.
type Stats struct {
	TotalAttempts int
	PerfectScores int
	Streak        int
}

// Badge pairs an identifier with its unlock criterion. Criteria are
// recomputed from full history on every update; badges already held are
// never re-granted or removed.
type Badge struct {
	ID       string
	Label    string
	Criteria func(Stats) bool
}

var badgeTable = []Badge{
	{ID: "first-quiz", Label: "First Quiz", Criteria: func(s Stats) bool { return s.TotalAttempts == 1 }},
	{ID: "quiz-master", Label: "Quiz Master", Criteria: func(s Stats) bool { return s.PerfectScores >= 5 }},
	{ID: "streak-starter", Label: "Streak Starter", Criteria: func(s Stats) bool { return s.Streak >= 3 }},
	{ID: "dedicated", Label: "Dedicated", Criteria: func(s Stats) bool { return s.Streak >= 7 }},
}

// Badges returns the fixed badge rule table.
func Badges() []Badge {
	return badgeTable
}
