package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

const journalColumns = `position, partition_key, sort_key, aggregate_kind, aggregate_id, seq_nr, event_id, event_type, payload, occurred_at, version`

// Append writes events in one transaction. The UNIQUE (partition_key,
// sort_key) constraint rejects occupied slots.
func (s *Store) Append(ctx context.Context, events []event.Event, version uint64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	records, err := storage.EncodeBatch(s.codec, events, version)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO journal (partition_key, sort_key, aggregate_kind, aggregate_id, seq_nr, event_id, event_type, payload, occurred_at, version)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.PartitionKey,
				rec.SortKey,
				rec.AggregateKind,
				rec.AggregateID,
				int64(rec.SeqNr),
				rec.EventID,
				rec.EventType,
				rec.Payload,
				rec.OccurredAt,
				int64(rec.Version),
			)
			if err == nil {
				continue
			}
			if !isConstraintError(err) {
				return fmt.Errorf("append journal: %w", err)
			}
			// Only an occupied slot is a concurrency conflict; event_id is
			// unique too.
			taken, lookupErr := slotTaken(ctx, tx, rec.PartitionKey, rec.SortKey)
			if lookupErr != nil {
				return fmt.Errorf("append journal: %w", lookupErr)
			}
			if taken {
				return fmt.Errorf("append %s seq %d: %w", rec.PartitionKey, rec.SeqNr, storage.ErrOptimisticLockConflict)
			}
			return fmt.Errorf("append %s event %s: %w", rec.PartitionKey, rec.EventID, storage.ErrDuplicateEventID)
		}
		return nil
	})
}

func slotTaken(ctx context.Context, tx *sql.Tx, partitionKey, sortKey string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM journal WHERE partition_key = ? AND sort_key = ?`,
		partitionKey, sortKey,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadEvents returns the aggregate's events in seqNr order.
func (s *Store) LoadEvents(ctx context.Context, id event.AggregateID, r storage.SeqRange) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, nil
	}

	query := `SELECT ` + journalColumns + ` FROM journal WHERE partition_key = ? AND sort_key >= ?`
	args := []any{storage.PartitionKey(id), storage.SortKey(r.From)}
	if r.To > 0 {
		query += ` AND sort_key <= ?`
		args = append(args, storage.SortKey(r.To))
	}
	query += ` ORDER BY sort_key`

	records, err := s.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	events := make([]event.Event, 0, len(records))
	for _, rec := range records {
		evt, err := storage.DecodeRecord(s.codec, rec)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", rec.EventID, err)
		}
		events = append(events, evt)
	}
	return events, nil
}

// LatestVersion returns the version of the aggregate's newest event.
func (s *Store) LatestVersion(ctx context.Context, id event.AggregateID) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var version int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version FROM journal WHERE partition_key = ? ORDER BY sort_key DESC LIMIT 1`,
		storage.PartitionKey(id),
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("latest version: %w", err)
	}
	return uint64(version), nil
}

// ReadAfter returns up to limit records past position in append order.
func (s *Store) ReadAfter(ctx context.Context, position uint64, limit int) ([]storage.JournalRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	records, err := s.queryRecords(ctx,
		`SELECT `+journalColumns+` FROM journal WHERE position > ? ORDER BY position LIMIT ?`,
		int64(position), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read journal feed: %w", err)
	}
	return records, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]storage.JournalRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.JournalRecord
	for rows.Next() {
		var (
			rec                      storage.JournalRecord
			position, seqNr, version int64
		)
		if err := rows.Scan(
			&position,
			&rec.PartitionKey,
			&rec.SortKey,
			&rec.AggregateKind,
			&rec.AggregateID,
			&seqNr,
			&rec.EventID,
			&rec.EventType,
			&rec.Payload,
			&rec.OccurredAt,
			&version,
		); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		rec.Position = uint64(position)
		rec.SeqNr = uint64(seqNr)
		rec.Version = uint64(version)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
