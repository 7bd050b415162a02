package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// Append writes events in one badger transaction. A slot that already holds
// a record fails the batch with storage.ErrOptimisticLockConflict.
func (s *Store) Append(ctx context.Context, events []event.Event, version uint64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	aggregate := events[0].AggregateID
	batch := make([]event.Fields, 0, len(events))
	for _, evt := range events {
		if evt.AggregateID != aggregate {
			return storage.ErrAggregateMismatch
		}
		fields, err := s.codec.Encode(evt)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", evt.ID, err)
		}
		batch = append(batch, fields)
	}
	partition := storage.PartitionKey(aggregate)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Positions are leased before the transaction. A failed append leaves a
	// gap in the feed, which readers tolerate.
	positions := make([]uint64, len(events))
	for i := range positions {
		next, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("next feed position: %w", err)
		}
		positions[i] = next + 1
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, evt := range events {
			key := journalKey(partition, storage.SortKey(evt.SeqNr))
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("append %s seq %d: %w", partition, evt.SeqNr, storage.ErrOptimisticLockConflict)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check journal slot: %w", err)
			}

			position := positions[i]
			value, err := encodeEntry(batch[i], position, version)
			if err != nil {
				return fmt.Errorf("encode journal entry: %w", err)
			}
			if err := txn.Set(key, value); err != nil {
				return fmt.Errorf("write journal entry: %w", err)
			}
			if err := txn.Set(feedKey(position), key); err != nil {
				return fmt.Errorf("write feed entry: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("append %s: %w", partition, storage.ErrOptimisticLockConflict)
	}
	return err
}

// LoadEvents returns the aggregate's events in seqNr order.
func (s *Store) LoadEvents(ctx context.Context, id event.AggregateID, r storage.SeqRange) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, nil
	}

	prefix := journalKey(storage.PartitionKey(id), "")
	var entries []entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(journalKey(storage.PartitionKey(id), storage.SortKey(r.From))); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if r.To > 0 && string(item.Key()[len(prefix):]) > storage.SortKey(r.To) {
				break
			}
			err := item.Value(func(value []byte) error {
				e, err := decodeEntry(value)
				if err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	events := make([]event.Event, 0, len(entries))
	for _, e := range entries {
		evt, err := s.codec.Decode(e.fields)
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, evt)
	}
	return events, nil
}

// LatestVersion returns the version stored with the aggregate's newest event.
func (s *Store) LatestVersion(ctx context.Context, id event.AggregateID) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	partition := storage.PartitionKey(id)
	prefix := journalKey(partition, "")

	var (
		latest entry
		found  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the largest sort key, then walk back onto the newest record.
		it.Seek(journalKey(partition, "9999999999999999"))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(value []byte) error {
			e, err := decodeEntry(value)
			if err != nil {
				return err
			}
			latest, found = e, true
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("latest version: %w", err)
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest.version, nil
}

// ReadAfter returns up to limit records past position in append order.
func (s *Store) ReadAfter(ctx context.Context, position uint64, limit int) ([]storage.JournalRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	prefix := []byte(feedPrefix)
	var records []storage.JournalRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(feedKey(position + 1)); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			journalRef, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(journalRef)
			if err != nil {
				return fmt.Errorf("resolve feed entry %s: %w", journalRef, err)
			}
			err = item.Value(func(value []byte) error {
				e, err := decodeEntry(value)
				if err != nil {
					return err
				}
				rec, err := e.record()
				if err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal feed: %w", err)
	}
	return records, nil
}
