// Package storage defines the persistence contracts for the group chat
// service: the append-only journal, snapshots, the delivery feed over the
// journal, and the projected read model.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/groupchat/internal/platform/errors"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrOptimisticLockConflict indicates another writer already occupies one of
// the (aggregate, seqNr) slots an append targeted. Callers reload the
// aggregate and retry the command.
var ErrOptimisticLockConflict = apperrors.New(apperrors.CodeOptimisticLockConflict, "optimistic lock conflict")

// ErrDuplicateEventID indicates an appended event reuses the id of a stored
// event in a different slot. Retrying the same batch cannot succeed.
var ErrDuplicateEventID = apperrors.New(apperrors.CodeJournalDuplicateEventID, "event id already stored")

// ErrAggregateMismatch indicates an append batch mixed events of several aggregates.
var ErrAggregateMismatch = apperrors.New(apperrors.CodeJournalAggregateMismatch, "events belong to different aggregates")

// SeqRange bounds LoadEvents. Both ends are inclusive; a zero To is unbounded.
type SeqRange struct {
	From uint64
	To   uint64
}

// Contains reports whether seq falls inside the range.
func (r SeqRange) Contains(seq uint64) bool {
	if seq < r.From {
		return false
	}
	return r.To == 0 || seq <= r.To
}

// EventStore is the append-only journal of aggregate events.
type EventStore interface {
	// Append writes events for one aggregate atomically. version is the
	// aggregate version recorded with every event. An occupied slot fails
	// the whole batch with ErrOptimisticLockConflict.
	Append(ctx context.Context, events []event.Event, version uint64) error
	// LoadEvents returns the aggregate's events ordered by seqNr. An empty
	// id yields no events and no error.
	LoadEvents(ctx context.Context, id event.AggregateID, r SeqRange) ([]event.Event, error)
	// LatestVersion returns the version stored with the aggregate's newest
	// event, or ErrNotFound when the stream is empty.
	LatestVersion(ctx context.Context, id event.AggregateID) (uint64, error)
}

// Snapshot is a serialized aggregate state at a given seqNr.
type Snapshot struct {
	AggregateID event.AggregateID
	SeqNr       uint64
	Version     uint64
	Payload     []byte
	CreatedAt   time.Time
}

// SnapshotStore keeps the newest snapshot per aggregate.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, id event.AggregateID) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// JournalFeed exposes journal records in global append order for projectors.
type JournalFeed interface {
	// ReadAfter returns up to limit records whose Position is greater than
	// position, ordered by Position.
	ReadAfter(ctx context.Context, position uint64, limit int) ([]JournalRecord, error)
}

// Journal is the full surface a journal backend provides.
type Journal interface {
	EventStore
	SnapshotStore
	JournalFeed
	Close() error
}

// CheckpointStore tracks how far a named consumer has read the journal feed.
type CheckpointStore interface {
	// GetCheckpoint returns the last acknowledged position, or 0.
	GetCheckpoint(ctx context.Context, name string) (uint64, error)
	SaveCheckpoint(ctx context.Context, name string, position uint64) error
}
