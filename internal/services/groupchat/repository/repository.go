// Package repository loads and stores group chat aggregates through the
// event journal.
//
// A command runs against a loaded aggregate value; Store appends the emitted
// events at the slots following the loaded seqNr. When another writer got
// there first the append fails with storage.ErrOptimisticLockConflict and the
// caller decides whether to reload and retry.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/louisbranch/groupchat/internal/services/groupchat/repository"

// Options configures a Repository.
type Options struct {
	// Snapshots enables snapshot-assisted loads when set.
	Snapshots storage.SnapshotStore
	// SnapshotInterval saves a snapshot each time a store crosses a multiple
	// of this many seqNrs. Zero disables snapshot writes.
	SnapshotInterval uint64
	Logger           *zap.Logger
}

// Repository persists group chats as event streams.
type Repository struct {
	events           storage.EventStore
	snapshots        storage.SnapshotStore
	snapshotInterval uint64
	logger           *zap.Logger
	tracer           trace.Tracer
}

// New builds a Repository over events.
func New(events storage.EventStore, opts Options) (*Repository, error) {
	if events == nil {
		return nil, errors.New("event store is required")
	}
	return &Repository{
		events:           events,
		snapshots:        opts.Snapshots,
		snapshotInterval: opts.SnapshotInterval,
		logger:           logging.OrNop(opts.Logger),
		tracer:           otel.Tracer(tracerName),
	}, nil
}

// Create starts a new group chat and stores its creation event.
func (r *Repository) Create(ctx context.Context, name groupchat.Name, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	chat, created, err := groupchat.Create(name, executor)
	if err != nil {
		return groupchat.GroupChat{}, event.Event{}, err
	}
	stored, err := r.Store(ctx, chat, created)
	if err != nil {
		return groupchat.GroupChat{}, event.Event{}, err
	}
	return stored, created, nil
}

// Load rebuilds the aggregate from its latest snapshot and the events after
// it. It returns storage.ErrNotFound when the stream is empty.
func (r *Repository) Load(ctx context.Context, id groupchat.ID) (chat groupchat.GroupChat, err error) {
	ctx, span := r.tracer.Start(ctx, "groupchat.Load", trace.WithAttributes(attribute.String("groupchat.id", string(id))))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return groupchat.GroupChat{}, groupchat.ErrIDEmpty
	}
	aggregateID := id.AggregateID()

	base, fromSnapshot := r.loadSnapshot(ctx, aggregateID)
	events, err := r.events.LoadEvents(ctx, aggregateID, storage.SeqRange{From: base.SeqNr() + 1})
	if err != nil {
		return groupchat.GroupChat{}, fmt.Errorf("load group chat %s: %w", id, err)
	}
	if len(events) == 0 {
		if fromSnapshot {
			return base, nil
		}
		return groupchat.GroupChat{}, storage.ErrNotFound
	}

	chat, err = groupchat.Replay(events, base)
	if err != nil {
		return groupchat.GroupChat{}, err
	}
	version, err := r.events.LatestVersion(ctx, aggregateID)
	if err != nil {
		return groupchat.GroupChat{}, fmt.Errorf("load group chat %s version: %w", id, err)
	}
	span.SetAttributes(attribute.Int64("groupchat.seq_nr", int64(chat.SeqNr())))
	return chat.WithVersion(version), nil
}

// loadSnapshot returns the snapshot state, or the empty state when there is
// no usable snapshot. Snapshot failures fall back to a full replay.
func (r *Repository) loadSnapshot(ctx context.Context, id event.AggregateID) (groupchat.GroupChat, bool) {
	if r.snapshots == nil {
		return groupchat.Empty(), false
	}
	snap, err := r.snapshots.LatestSnapshot(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return groupchat.Empty(), false
	}
	if err != nil {
		r.logger.Warn("read snapshot", zap.Stringer("aggregate_id", id), zap.Error(err))
		return groupchat.Empty(), false
	}
	state, err := groupchat.UnmarshalSnapshot(snap.Payload)
	if err != nil || state.ID().AggregateID() != id {
		r.logger.Warn("discard snapshot", zap.Stringer("aggregate_id", id), zap.Uint64("seq_nr", snap.SeqNr), zap.Error(err))
		return groupchat.Empty(), false
	}
	return state.WithVersion(snap.Version), true
}

// Store appends events produced from the loaded state. chat is the state after
// the events were applied. The stored version is 1 for a creation batch and
// the loaded version plus one otherwise.
func (r *Repository) Store(ctx context.Context, chat groupchat.GroupChat, events ...event.Event) (stored groupchat.GroupChat, err error) {
	ctx, span := r.tracer.Start(ctx, "groupchat.Store", trace.WithAttributes(
		attribute.String("groupchat.id", string(chat.ID())),
		attribute.Int("groupchat.events", len(events)),
	))
	defer func() { endSpan(span, err) }()

	if len(events) == 0 {
		return chat, nil
	}
	version := chat.Version() + 1
	if events[0].SeqNr == 1 {
		version = 1
	}
	if err := r.events.Append(ctx, events, version); err != nil {
		if errors.Is(err, storage.ErrOptimisticLockConflict) {
			r.logger.Debug("append conflict",
				zap.String("group_chat_id", string(chat.ID())),
				zap.Uint64("seq_nr", events[0].SeqNr),
			)
			return groupchat.GroupChat{}, err
		}
		return groupchat.GroupChat{}, fmt.Errorf("store group chat %s: %w", chat.ID(), err)
	}
	stored = chat.WithVersion(version)

	previous := events[0].SeqNr - 1
	if r.shouldSnapshot(previous, stored.SeqNr()) {
		r.saveSnapshot(ctx, stored)
	}
	return stored, nil
}

func (r *Repository) shouldSnapshot(previous, current uint64) bool {
	if r.snapshots == nil || r.snapshotInterval == 0 {
		return false
	}
	return previous/r.snapshotInterval < current/r.snapshotInterval
}

// saveSnapshot is best effort: the events are already committed.
func (r *Repository) saveSnapshot(ctx context.Context, chat groupchat.GroupChat) {
	payload, err := groupchat.MarshalSnapshot(chat)
	if err != nil {
		r.logger.Warn("encode snapshot", zap.String("group_chat_id", string(chat.ID())), zap.Error(err))
		return
	}
	err = r.snapshots.SaveSnapshot(ctx, storage.Snapshot{
		AggregateID: chat.ID().AggregateID(),
		SeqNr:       chat.SeqNr(),
		Version:     chat.Version(),
		Payload:     payload,
		CreatedAt:   event.Now(),
	})
	if err != nil {
		r.logger.Warn("save snapshot", zap.String("group_chat_id", string(chat.ID())), zap.Error(err))
	}
}

// Execute loads the aggregate, runs cmd as executor and stores the event.
// Conflicts are returned as is; Execute never retries.
func (r *Repository) Execute(ctx context.Context, id groupchat.ID, cmd Command, executor groupchat.UserAccountID) (event.Event, error) {
	if cmd == nil {
		return event.Event{}, errors.New("command is required")
	}
	chat, err := r.Load(ctx, id)
	if err != nil {
		return event.Event{}, err
	}
	next, evt, err := cmd.apply(chat, executor)
	if err != nil {
		return event.Event{}, err
	}
	if _, err := r.Store(ctx, next, evt); err != nil {
		return event.Event{}, err
	}
	return evt, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
