package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// SaveSnapshot upserts the aggregate snapshot unless a newer one is stored.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if snapshot.AggregateID.IsZero() {
		return fmt.Errorf("aggregate id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO snapshots (partition_key, aggregate_kind, aggregate_id, seq_nr, version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (partition_key) DO UPDATE SET
		     seq_nr = excluded.seq_nr,
		     version = excluded.version,
		     payload = excluded.payload,
		     created_at = excluded.created_at
		 WHERE excluded.seq_nr > snapshots.seq_nr`,
		storage.PartitionKey(snapshot.AggregateID),
		snapshot.AggregateID.Kind,
		snapshot.AggregateID.Value,
		int64(snapshot.SeqNr),
		int64(snapshot.Version),
		snapshot.Payload,
		toMillis(snapshot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the stored snapshot or storage.ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, id event.AggregateID) (storage.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Snapshot{}, err
	}
	var (
		snap            storage.Snapshot
		seqNr, version  int64
		createdAtMillis int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT aggregate_kind, aggregate_id, seq_nr, version, payload, created_at FROM snapshots WHERE partition_key = ?`,
		storage.PartitionKey(id),
	).Scan(&snap.AggregateID.Kind, &snap.AggregateID.Value, &seqNr, &version, &snap.Payload, &createdAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	snap.SeqNr = uint64(seqNr)
	snap.Version = uint64(version)
	snap.CreatedAt = fromMillis(createdAtMillis)
	return snap, nil
}
