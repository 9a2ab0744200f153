package leaderboard

import (
	"math"
	"sort"

	"github.com/google/uuid"

	ws "github.com/quizdeck/quizdeck/pkg/http/ws"
)

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:        e.Rank,
			UserID:      e.UserID.String(),
			DisplayName: e.DisplayName,
			TotalScore:  e.TotalScore,
		}
	}
	return result
}

// rankTotals orders users by total score descending. Ties keep the order of
// first appearance, which the order slice carries.
func rankTotals(totals map[uuid.UUID]float64, order []uuid.UUID, limit int) []Entry {
	entries := make([]Entry, 0, len(order))
	for _, userID := range order {
		entries = append(entries, Entry{
			UserID:     userID,
			TotalScore: round2(totals[userID]),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
