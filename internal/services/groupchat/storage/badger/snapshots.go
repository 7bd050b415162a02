package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// SaveSnapshot stores the snapshot unless a newer one is already stored.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if snapshot.AggregateID.IsZero() {
		return fmt.Errorf("aggregate id is required")
	}
	key := snapshotKey(storage.PartitionKey(snapshot.AggregateID))
	value, err := marshalStruct(map[string]any{
		"aggregateKind": snapshot.AggregateID.Kind,
		"aggregateId":   snapshot.AggregateID.Value,
		"seqNr":         snapshot.SeqNr,
		"version":       snapshot.Version,
		"payload":       string(snapshot.Payload),
		"createdAt":     event.ToMillis(snapshot.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := readSnapshot(txn, key)
		switch {
		case err == nil && existing.SeqNr >= snapshot.SeqNr:
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	})
}

// LatestSnapshot returns the stored snapshot or storage.ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, id event.AggregateID) (storage.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Snapshot{}, err
	}
	var snap storage.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = readSnapshot(txn, snapshotKey(storage.PartitionKey(id)))
		return err
	})
	return snap, err
}

func readSnapshot(txn *badger.Txn, key []byte) (storage.Snapshot, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	values, err := unmarshalStruct(data)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var snap storage.Snapshot
	if snap.AggregateID.Kind, err = values.String("aggregateKind"); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.AggregateID.Value, err = values.String("aggregateId"); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.SeqNr, err = values.Uint64("seqNr"); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version, err = values.Uint64("version"); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	payload, err := values.String("payload")
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Payload = []byte(payload)
	if snap.CreatedAt, err = values.Time("createdAt"); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
