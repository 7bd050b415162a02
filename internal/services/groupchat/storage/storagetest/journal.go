// Package storagetest holds behavior suites every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// JournalFactory opens an empty journal for one subtest.
type JournalFactory func(t *testing.T) storage.Journal

// Stream builds a short, valid event history for a fresh group chat.
func Stream(t *testing.T, admin groupchat.UserAccountID) (groupchat.GroupChat, []event.Event) {
	t.Helper()
	chat, created, err := groupchat.Create(groupchat.MustName("Team"), admin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	events := []event.Event{created}
	next, added, err := chat.AddMember(groupchat.NewMemberID(), "user-member", groupchat.RoleMember, admin)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	events = append(events, added)
	msg, err := groupchat.NewMessage(groupchat.NewMessageID(), admin, "hello", event.Now())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	next, posted, err := next.PostMessage(msg, admin)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	events = append(events, posted)
	return next, events
}

// RunJournalTests exercises the EventStore, SnapshotStore and JournalFeed contracts.
func RunJournalTests(t *testing.T, open JournalFactory) {
	t.Run("append and load", func(t *testing.T) { testAppendAndLoad(t, open(t)) })
	t.Run("load range", func(t *testing.T) { testLoadRange(t, open(t)) })
	t.Run("empty inputs", func(t *testing.T) { testEmptyInputs(t, open(t)) })
	t.Run("occupied slot conflicts", func(t *testing.T) { testOccupiedSlot(t, open(t)) })
	t.Run("batch is atomic", func(t *testing.T) { testAtomicBatch(t, open(t)) })
	t.Run("prefixed ids stay isolated", func(t *testing.T) { testPrefixedIDs(t, open(t)) })
	t.Run("mixed aggregates rejected", func(t *testing.T) { testMixedAggregates(t, open(t)) })
	t.Run("concurrent append race", func(t *testing.T) { testConcurrentAppend(t, open(t)) })
	t.Run("latest version", func(t *testing.T) { testLatestVersion(t, open(t)) })
	t.Run("snapshots", func(t *testing.T) { testSnapshots(t, open(t)) })
	t.Run("feed", func(t *testing.T) { testFeed(t, open(t)) })
	t.Run("canceled context", func(t *testing.T) { testCanceledContext(t, open(t)) })
}

func testAppendAndLoad(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, events := Stream(t, "user-admin")

	if err := journal.Append(ctx, events[:1], 1); err != nil {
		t.Fatalf("append created: %v", err)
	}
	if err := journal.Append(ctx, events[1:], 2); err != nil {
		t.Fatalf("append rest: %v", err)
	}

	got, err := journal.LoadEvents(ctx, events[0].AggregateID, storage.SeqRange{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, events) {
		t.Fatalf("loaded events differ:\n got %#v\nwant %#v", got, events)
	}
}

func testLoadRange(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, events := Stream(t, "user-admin")
	if err := journal.Append(ctx, events, 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	id := events[0].AggregateID

	got, err := journal.LoadEvents(ctx, id, storage.SeqRange{From: 2})
	if err != nil {
		t.Fatalf("load from 2: %v", err)
	}
	if len(got) != 2 || got[0].SeqNr != 2 || got[1].SeqNr != 3 {
		t.Fatalf("from 2 = %v", seqNrs(got))
	}
	got, err = journal.LoadEvents(ctx, id, storage.SeqRange{From: 1, To: 2})
	if err != nil {
		t.Fatalf("load 1..2: %v", err)
	}
	if len(got) != 2 || got[0].SeqNr != 1 || got[1].SeqNr != 2 {
		t.Fatalf("1..2 = %v", seqNrs(got))
	}
	got, err = journal.LoadEvents(ctx, id, storage.SeqRange{From: 4})
	if err != nil {
		t.Fatalf("load past end: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("past end = %v", seqNrs(got))
	}
}

func testPrefixedIDs(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	chat, created, err := groupchat.CreateWithID("chat", groupchat.MustName("Short"), "user-admin")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	longer, longerCreated, err := groupchat.CreateWithID("chat:x", groupchat.MustName("Long"), "user-admin")
	if err != nil {
		t.Fatalf("create chat:x: %v", err)
	}
	_, added, err := longer.AddMember(groupchat.NewMemberID(), "user-member", groupchat.RoleMember, "user-admin")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := journal.Append(ctx, []event.Event{created}, 1); err != nil {
		t.Fatalf("append chat: %v", err)
	}
	if err := journal.Append(ctx, []event.Event{longerCreated}, 1); err != nil {
		t.Fatalf("append chat:x: %v", err)
	}
	if err := journal.Append(ctx, []event.Event{added}, 2); err != nil {
		t.Fatalf("append chat:x member: %v", err)
	}

	ranges := []storage.SeqRange{{}, {From: 1, To: 1}, {From: 1, To: 5}}
	for _, r := range ranges {
		got, err := journal.LoadEvents(ctx, chat.ID().AggregateID(), r)
		if err != nil {
			t.Fatalf("load chat %+v: %v", r, err)
		}
		if len(got) != 1 || got[0].ID != created.ID {
			t.Fatalf("load chat %+v returned %d events, want only its own", r, len(got))
		}
	}
	version, err := journal.LatestVersion(ctx, chat.ID().AggregateID())
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	got, err := journal.LoadEvents(ctx, longer.ID().AggregateID(), storage.SeqRange{})
	if err != nil {
		t.Fatalf("load chat:x: %v", err)
	}
	if !reflect.DeepEqual(seqNrs(got), []uint64{1, 2}) {
		t.Fatalf("chat:x stream = %v", seqNrs(got))
	}
}

func testEmptyInputs(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	if err := journal.Append(ctx, nil, 1); err != nil {
		t.Fatalf("empty append: %v", err)
	}
	got, err := journal.LoadEvents(ctx, event.AggregateID{}, storage.SeqRange{})
	if err != nil {
		t.Fatalf("load empty id: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %d", len(got))
	}
	got, err = journal.LoadEvents(ctx, groupchat.NewID().AggregateID(), storage.SeqRange{})
	if err != nil {
		t.Fatalf("load unknown id: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events for unknown id, got %d", len(got))
	}
}

func testOccupiedSlot(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, events := Stream(t, "user-admin")
	if err := journal.Append(ctx, events[:2], 1); err != nil {
		t.Fatalf("append: %v", err)
	}

	rival := events[1]
	rival.ID = "evt-rival"
	err := journal.Append(ctx, []event.Event{rival}, 2)
	if !errors.Is(err, storage.ErrOptimisticLockConflict) {
		t.Fatalf("expected ErrOptimisticLockConflict, got %v", err)
	}
}

func testAtomicBatch(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, events := Stream(t, "user-admin")
	if err := journal.Append(ctx, events[:1], 1); err != nil {
		t.Fatalf("append created: %v", err)
	}
	if err := journal.Append(ctx, events[2:3], 2); err != nil {
		t.Fatalf("append seq 3: %v", err)
	}

	err := journal.Append(ctx, events[1:3], 2)
	if !errors.Is(err, storage.ErrOptimisticLockConflict) {
		t.Fatalf("expected ErrOptimisticLockConflict, got %v", err)
	}
	got, err := journal.LoadEvents(ctx, events[0].AggregateID, storage.SeqRange{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(seqNrs(got), []uint64{1, 3}) {
		t.Fatalf("failed batch must write nothing, stream = %v", seqNrs(got))
	}
}

func testMixedAggregates(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, first := Stream(t, "user-admin")
	_, second := Stream(t, "user-admin")

	err := journal.Append(ctx, []event.Event{first[0], second[0]}, 1)
	if !errors.Is(err, storage.ErrAggregateMismatch) {
		t.Fatalf("expected ErrAggregateMismatch, got %v", err)
	}
	got, err := journal.LoadEvents(ctx, first[0].AggregateID, storage.SeqRange{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rejected batch must write nothing, got %d events", len(got))
	}
}

func testConcurrentAppend(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	chat, created, err := groupchat.Create(groupchat.MustName("Race"), "user-admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := journal.Append(ctx, []event.Event{created}, 1); err != nil {
		t.Fatalf("append created: %v", err)
	}

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		// Every writer loaded the same base state and targets seqNr 2.
		_, evt, err := chat.AddMember(groupchat.NewMemberID(), groupchat.UserAccountID(groupchat.NewMemberID()), groupchat.RoleMember, "user-admin")
		if err != nil {
			t.Fatalf("add member: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := journal.Append(ctx, []event.Event{evt}, 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, storage.ErrOptimisticLockConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected append errors: %v", others)
	}
	if successes != 1 || conflicts != writers-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1 and %d", successes, conflicts, writers-1)
	}
	got, err := journal.LoadEvents(ctx, created.AggregateID, storage.SeqRange{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(seqNrs(got), []uint64{1, 2}) {
		t.Fatalf("stream = %v", seqNrs(got))
	}
}

func testLatestVersion(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, events := Stream(t, "user-admin")
	id := events[0].AggregateID

	if _, err := journal.LatestVersion(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := journal.Append(ctx, events[:1], 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(ctx, events[1:], 2); err != nil {
		t.Fatalf("append: %v", err)
	}
	version, err := journal.LatestVersion(ctx, id)
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
}

func testSnapshots(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	id := groupchat.NewID().AggregateID()

	if _, err := journal.LatestSnapshot(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := storage.Snapshot{AggregateID: id, SeqNr: 5, Version: 2, Payload: []byte(`{"a":1}`), CreatedAt: at}
	second := storage.Snapshot{AggregateID: id, SeqNr: 10, Version: 4, Payload: []byte(`{"a":2}`), CreatedAt: at.Add(time.Minute)}
	if err := journal.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := journal.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	// An older snapshot never replaces a newer one.
	if err := journal.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("save stale: %v", err)
	}

	got, err := journal.LatestSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if got.SeqNr != 10 || got.Version != 4 || string(got.Payload) != `{"a":2}` || !got.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.AggregateID != id {
		t.Fatalf("snapshot aggregate = %v", got.AggregateID)
	}
}

func testFeed(t *testing.T, journal storage.Journal) {
	ctx := context.Background()
	_, first := Stream(t, "user-a")
	_, second := Stream(t, "user-b")
	if err := journal.Append(ctx, first[:2], 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(ctx, second, 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := journal.Append(ctx, first[2:], 2); err != nil {
		t.Fatalf("append: %v", err)
	}
	wantIDs := []string{first[0].ID, first[1].ID, second[0].ID, second[1].ID, second[2].ID, first[2].ID}

	all, err := journal.ReadAfter(ctx, 0, 100)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if got := eventIDs(all); !reflect.DeepEqual(got, wantIDs) {
		t.Fatalf("feed order = %v, want %v", got, wantIDs)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Position <= all[i-1].Position {
			t.Fatalf("positions not increasing: %d then %d", all[i-1].Position, all[i].Position)
		}
	}
	if all[5].Version != 2 || all[5].SeqNr != 3 || all[5].SortKey != storage.SortKey(3) {
		t.Fatalf("last record = %+v", all[5])
	}

	page, err := journal.ReadAfter(ctx, all[1].Position, 2)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if got := eventIDs(page); !reflect.DeepEqual(got, wantIDs[2:4]) {
		t.Fatalf("page = %v, want %v", got, wantIDs[2:4])
	}
	tail, err := journal.ReadAfter(ctx, all[5].Position, 10)
	if err != nil {
		t.Fatalf("read tail: %v", err)
	}
	if len(tail) != 0 {
		t.Fatalf("expected empty tail, got %d", len(tail))
	}
}

func testCanceledContext(t *testing.T, journal storage.Journal) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, events := Stream(t, "user-admin")

	if err := journal.Append(ctx, events, 1); err == nil {
		t.Fatal("expected append error for canceled context")
	}
	if _, err := journal.LoadEvents(ctx, events[0].AggregateID, storage.SeqRange{}); err == nil {
		t.Fatal("expected load error for canceled context")
	}
	if _, err := journal.ReadAfter(ctx, 0, 10); err == nil {
		t.Fatal("expected feed error for canceled context")
	}
}

func seqNrs(events []event.Event) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.SeqNr)
	}
	return out
}

func eventIDs(records []storage.JournalRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.EventID)
	}
	return out
}
