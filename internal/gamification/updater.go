package gamification

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/db/repository"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

const dayFormat = "2006-01-02"

var badgesGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quizdeck_badges_granted_total",
	Help: "Badges granted, labeled by badge id.",
}, []string{"badge"})

type userStore interface {
	GetByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	UpdateXP(ctx context.Context, userID uuid.UUID, xp int) error
	UpdateStreak(ctx context.Context, userID uuid.UUID, streak repository.Streak) error
	AddBadge(ctx context.Context, userID uuid.UUID, badge string) error
}

type resultStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]quiz.Result, error)
}

// Options override the experience constants.
type Options struct {
	XPPerCorrect     int // default 10
	XPCompletionBase int // default 50
	XPPerLevel       int // default 1000
}

// Updater recomputes a user's experience, streak and badges after a
// completed attempt. Each field is an independent write; a failure partway
// leaves prior writes applied, and the next successful run re-evaluates from
// stored state.
type Updater struct {
	users   userStore
	results resultStore
	opts    Options
	logger  zerolog.Logger
}

// NewUpdater constructs a gamification updater.
func NewUpdater(users userStore, results resultStore, opts Options, logger zerolog.Logger) *Updater {
	if opts.XPPerCorrect <= 0 {
		opts.XPPerCorrect = 10
	}
	if opts.XPCompletionBase <= 0 {
		opts.XPCompletionBase = 50
	}
	if opts.XPPerLevel <= 0 {
		opts.XPPerLevel = 1000
	}
	return &Updater{
		users:   users,
		results: results,
		opts:    opts,
		logger:  logger.With().Str("component", "gamification").Logger(),
	}
}

// Input describes the completed attempt driving the update.
type Input struct {
	UserID      uuid.UUID
	Score       float64
	MaxScore    float64
	CompletedAt time.Time
}

// Summary reports what the update changed.
type Summary struct {
	XPEarned      int      `json:"xp_earned"`
	TotalXP       int      `json:"total_xp"`
	Level         int      `json:"level"`
	LeveledUp     bool     `json:"leveled_up"`
	Streak        int      `json:"streak"`
	LongestStreak int      `json:"longest_streak"`
	NewBadges     []string `json:"new_badges,omitempty"`
}

// Update applies the gamification rules for one completed attempt. A missing
// profile is a no-op, never an error: this operation does not create
// profiles as a side effect.
func (u *Updater) Update(ctx context.Context, in Input) (*Summary, error) {
	user, err := u.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			u.logger.Warn().Str("user_id", in.UserID.String()).Msg("profile missing, skipping gamification")
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	// Experience: 10 per rounded correct answer plus a fixed completion bonus.
	correct := int(math.Round(in.Score))
	xpEarned := correct*u.opts.XPPerCorrect + u.opts.XPCompletionBase
	totalXP := user.XP + xpEarned
	if err := u.users.UpdateXP(ctx, in.UserID, totalXP); err != nil {
		return nil, fmt.Errorf("update xp: %w", err)
	}

	prevLevel := user.XP/u.opts.XPPerLevel + 1
	newLevel := totalXP/u.opts.XPPerLevel + 1
	if newLevel > prevLevel {
		u.logger.Info().
			Str("user_id", in.UserID.String()).
			Int("level", newLevel).
			Msg("level up")
	}

	streak := u.nextStreak(user.Streak, in.CompletedAt)
	if err := u.users.UpdateStreak(ctx, in.UserID, streak); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	newBadges, err := u.grantBadges(ctx, user, streak.Count)
	if err != nil {
		return nil, fmt.Errorf("grant badges: %w", err)
	}

	return &Summary{
		XPEarned:      xpEarned,
		TotalXP:       totalXP,
		Level:         newLevel,
		LeveledUp:     newLevel > prevLevel,
		Streak:        streak.Count,
		LongestStreak: streak.Longest,
		NewBadges:     newBadges,
	}, nil
}

// nextStreak compares the completion day (UTC) against the stored
// last-active day. Same day leaves the count untouched, exactly one day
// later increments, anything else resets to 1. Longest is a high-water mark
// and never decreases.
func (u *Updater) nextStreak(prev repository.Streak, completedAt time.Time) repository.Streak {
	today := completedAt.UTC().Format(dayFormat)
	yesterday := completedAt.UTC().AddDate(0, 0, -1).Format(dayFormat)

	next := prev
	switch prev.LastDate {
	case today:
		// already counted today
	case yesterday:
		next.Count++
	default:
		next.Count = 1
	}
	next.LastDate = today
	if next.Count > next.Longest {
		next.Longest = next.Count
	}
	return next
}

func (u *Updater) grantBadges(ctx context.Context, user repository.User, streak int) ([]string, error) {
	history, err := u.results.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	perfect := 0
	for _, r := range history {
		if r.MaxScore > 0 && r.Score == r.MaxScore {
			perfect++
		}
	}
	stats := Stats{
		TotalAttempts: len(history),
		PerfectScores: perfect,
		Streak:        streak,
	}

	held := make(map[string]struct{}, len(user.Badges))
	for _, b := range user.Badges {
		held[b] = struct{}{}
	}

	var granted []string
	for _, badge := range Badges() {
		if _, ok := held[badge.ID]; ok {
			continue
		}
		if !badge.Criteria(stats) {
			continue
		}
		if err := u.users.AddBadge(ctx, user.ID, badge.ID); err != nil {
			return granted, fmt.Errorf("add badge %s: %w", badge.ID, err)
		}
		badgesGranted.WithLabelValues(badge.ID).Inc()
		granted = append(granted, badge.ID)
		u.logger.Info().
			Str("user_id", user.ID.String()).
			Str("badge", badge.ID).
			Msg("badge unlocked")
	}
	return granted, nil
}
