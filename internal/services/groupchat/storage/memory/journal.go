// Package memory provides in-process journal and read model stores. State is
// lost when the process exits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// Journal stores encoded journal records in memory.
type Journal struct {
	codec *event.Codec

	mu        sync.Mutex
	records   []storage.JournalRecord
	slots     map[string]map[string]int
	snapshots map[string]storage.Snapshot
}

// NewJournal creates an empty in-memory journal.
func NewJournal(codec *event.Codec) *Journal {
	return &Journal{
		codec:     codec,
		slots:     make(map[string]map[string]int),
		snapshots: make(map[string]storage.Snapshot),
	}
}

func (j *Journal) ready(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if j == nil || j.codec == nil {
		return errors.New("journal is not configured")
	}
	return nil
}

// Append writes events atomically. Occupied slots fail the whole batch.
func (j *Journal) Append(ctx context.Context, events []event.Event, version uint64) error {
	if err := j.ready(ctx); err != nil {
		return err
	}
	records, err := storage.EncodeBatch(j.codec, events, version)
	if err != nil || len(records) == 0 {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	partition := records[0].PartitionKey
	slots := j.slots[partition]
	pending := make(map[string]bool, len(records))
	for _, rec := range records {
		if _, taken := slots[rec.SortKey]; taken || pending[rec.SortKey] {
			return fmt.Errorf("append %s seq %d: %w", partition, rec.SeqNr, storage.ErrOptimisticLockConflict)
		}
		pending[rec.SortKey] = true
	}

	if slots == nil {
		slots = make(map[string]int)
		j.slots[partition] = slots
	}
	for _, rec := range records {
		rec.Position = uint64(len(j.records) + 1)
		slots[rec.SortKey] = len(j.records)
		j.records = append(j.records, rec)
	}
	return nil
}

// LoadEvents returns the aggregate's events in seqNr order.
func (j *Journal) LoadEvents(ctx context.Context, id event.AggregateID, r storage.SeqRange) ([]event.Event, error) {
	if err := j.ready(ctx); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, nil
	}

	j.mu.Lock()
	slots := j.slots[storage.PartitionKey(id)]
	records := make([]storage.JournalRecord, 0, len(slots))
	for _, idx := range slots {
		if rec := j.records[idx]; r.Contains(rec.SeqNr) {
			records = append(records, rec)
		}
	}
	j.mu.Unlock()

	sort.Slice(records, func(a, b int) bool { return records[a].SeqNr < records[b].SeqNr })
	events := make([]event.Event, 0, len(records))
	for _, rec := range records {
		evt, err := storage.DecodeRecord(j.codec, rec)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", rec.EventID, err)
		}
		events = append(events, evt)
	}
	return events, nil
}

// LatestVersion returns the version of the aggregate's newest event.
func (j *Journal) LatestVersion(ctx context.Context, id event.AggregateID) (uint64, error) {
	if err := j.ready(ctx); err != nil {
		return 0, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	var (
		latest storage.JournalRecord
		found  bool
	)
	for _, idx := range j.slots[storage.PartitionKey(id)] {
		if rec := j.records[idx]; !found || rec.SeqNr > latest.SeqNr {
			latest, found = rec, true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest.Version, nil
}

// ReadAfter returns up to limit records past position in append order.
func (j *Journal) ReadAfter(ctx context.Context, position uint64, limit int) ([]storage.JournalRecord, error) {
	if err := j.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if position >= uint64(len(j.records)) {
		return nil, nil
	}
	end := min(int(position)+limit, len(j.records))
	out := make([]storage.JournalRecord, end-int(position))
	copy(out, j.records[position:end])
	return out, nil
}

// SaveSnapshot stores the snapshot unless a newer one is already stored.
func (j *Journal) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := j.ready(ctx); err != nil {
		return err
	}
	if snapshot.AggregateID.IsZero() {
		return errors.New("aggregate id is required")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	key := storage.PartitionKey(snapshot.AggregateID)
	if existing, ok := j.snapshots[key]; ok && existing.SeqNr >= snapshot.SeqNr {
		return nil
	}
	snapshot.Payload = append([]byte(nil), snapshot.Payload...)
	j.snapshots[key] = snapshot
	return nil
}

// LatestSnapshot returns the stored snapshot or storage.ErrNotFound.
func (j *Journal) LatestSnapshot(ctx context.Context, id event.AggregateID) (storage.Snapshot, error) {
	if err := j.ready(ctx); err != nil {
		return storage.Snapshot{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	snapshot, ok := j.snapshots[storage.PartitionKey(id)]
	if !ok {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	snapshot.Payload = append([]byte(nil), snapshot.Payload...)
	return snapshot, nil
}

// Close is a no-op.
func (j *Journal) Close() error {
	return nil
}
