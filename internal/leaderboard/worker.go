package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

type snapshotStore interface {
	Insert(ctx context.Context, generatedAt time.Time, entries []byte, sourceHash string) error
}

// SnapshotWorker periodically persists the Redis leaderboard into Postgres so
// the board survives cache loss. Unchanged boards are not re-persisted.
type SnapshotWorker struct {
	svc      *Service
	store    snapshotStore
	logger   zerolog.Logger
	interval time.Duration
	topN     int
	lastHash string
}

func NewSnapshotWorker(svc *Service, store snapshotStore, interval time.Duration, topN int, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 10
	}
	return &SnapshotWorker{
		svc:      svc,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     topN,
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.store == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	if err := w.snapshot(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("snapshot failed")
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context) error {
	entries, err := w.svc.Top(ctx, w.topN)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	data, err := json.Marshal(toWSEntries(entries))
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	sourceHash := hex.EncodeToString(sum[:])
	if sourceHash == w.lastHash {
		return nil
	}

	now := time.Now().UTC()
	if err := w.store.Insert(ctx, now, data, sourceHash); err != nil {
		return err
	}
	w.lastHash = sourceHash

	w.logger.Info().
		Int("entries", len(entries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")
	return nil
}
