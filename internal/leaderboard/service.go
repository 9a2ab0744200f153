package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quizdeck/internal/quiz"
	ws "github.com/quizdeck/quizdeck/pkg/http/ws"
)

// Entry is one ranked leaderboard row.
type Entry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	TotalScore  float64   `json:"total_score"`
}

// RecordRequest captures the data needed to bump a user's aggregate.
type RecordRequest struct {
	UserID      uuid.UUID
	DisplayName string
	Score       float64
}

type resultSource interface {
	ListAll(ctx context.Context) ([]quiz.Result, error)
}

// ServiceOptions configures leaderboard behavior.
type ServiceOptions struct {
	TopN           int
	PubSubChannel  string
	RedisKeyPrefix string
}

// Service keeps the all-time total-score board in a Redis sorted set and
// emits updates over Pub/Sub. The set is a cache: when it is empty or Redis
// is unreachable, the board is rebuilt from stored results.
type Service struct {
	redis   *redis.Client
	results resultSource
	logger  zerolog.Logger
	topN    int
	channel string
	prefix  string
}

// NewService constructs a leaderboard service.
func NewService(redisClient *redis.Client, results resultSource, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}

	return &Service{
		redis:   redisClient,
		results: results,
		logger:  logger.With().Str("component", "leaderboard").Logger(),
		topN:    topN,
		channel: channel,
		prefix:  prefix,
	}
}

// RecordResult adds a completed attempt's score to the user's running total
// and publishes the refreshed top list.
func (s *Service) RecordResult(ctx context.Context, req RecordRequest) error {
	if s.redis == nil {
		return nil
	}

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, s.boardKey(), req.Score, req.UserID.String())
	pipe.HSet(ctx, s.namesKey(), req.UserID.String(), req.DisplayName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard score: %w", err)
	}

	go s.publishUpdate(context.Background())
	return nil
}

// Top returns the current top entries, highest total first. An empty or
// unreachable Redis board falls back to a rebuild from stored results.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	entries, err := s.readBoard(ctx, limit)
	if err != nil || len(entries) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("redis leaderboard read failed, rebuilding from results")
		}
		return s.rebuild(ctx, limit)
	}
	return entries, nil
}

func (s *Service) readBoard(ctx context.Context, limit int) ([]Entry, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis not configured")
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.boardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		userID, err := uuid.Parse(z.Member.(string))
		if err != nil {
			continue
		}
		name, err := s.redis.HGet(ctx, s.namesKey(), z.Member.(string)).Result()
		if err != nil && err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read display name")
		}
		entries = append(entries, Entry{
			Rank:        i + 1,
			UserID:      userID,
			DisplayName: name,
			TotalScore:  z.Score,
		})
	}
	return entries, nil
}

// rebuild recomputes totals from all stored results and, when Redis is
// available, repopulates the cached board. Ties keep the order in which users
// first appear in the result history.
func (s *Service) rebuild(ctx context.Context, limit int) ([]Entry, error) {
	if s.results == nil {
		return []Entry{}, nil
	}

	all, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild leaderboard: %w", err)
	}

	totals := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, res := range all {
		if _, seen := totals[res.UserID]; !seen {
			order = append(order, res.UserID)
		}
		totals[res.UserID] += res.Score
	}

	entries := rankTotals(totals, order, limit)

	if s.redis != nil {
		for i := range entries {
			name, err := s.redis.HGet(ctx, s.namesKey(), entries[i].UserID.String()).Result()
			if err == nil {
				entries[i].DisplayName = name
			}
		}
	}

	if s.redis != nil && len(entries) > 0 {
		pipe := s.redis.TxPipeline()
		for userID, total := range totals {
			pipe.ZAdd(ctx, s.boardKey(), redis.Z{Score: total, Member: userID.String()})
		}
		if _, err := pipe.Exec(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to repopulate leaderboard cache")
		}
	}

	return entries, nil
}

func (s *Service) publishUpdate(ctx context.Context) {
	entries, err := s.Top(ctx, s.topN)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to collect leaderboard update")
		return
	}
	if len(entries) == 0 {
		return
	}

	payload := ws.LeaderboardUpdatePayload{
		Top:         toWSEntries(entries),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

// Channel reports the Pub/Sub channel updates are published on.
func (s *Service) Channel() string { return s.channel }

func (s *Service) boardKey() string { return s.prefix + ":total_score" }
func (s *Service) namesKey() string { return s.prefix + ":names" }
