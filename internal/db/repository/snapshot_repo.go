package repository

import (
	"context"
	"time"
)

// SnapshotRepository stores periodic leaderboard snapshots for reporting.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository wraps a pgx pool for snapshot writes.
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert persists one leaderboard snapshot. Entries is a JSON-encoded entry
// list; sourceHash deduplicates identical consecutive snapshots downstream.
func (r *SnapshotRepository) Insert(ctx context.Context, generatedAt time.Time, entries []byte, sourceHash string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO leaderboard_snapshots (generated_at, entries, source_hash)
		VALUES ($1, $2, $3)`,
		generatedAt, entries, sourceHash)
	return err
}
