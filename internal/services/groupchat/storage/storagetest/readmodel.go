package storagetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// ReadModelFactory opens an empty read model for one subtest.
type ReadModelFactory func(t *testing.T) storage.ReadModel

// RunReadModelTests exercises the ReadModelStore, GroupChatQuery and
// CheckpointStore contracts.
func RunReadModelTests(t *testing.T, open ReadModelFactory) {
	t.Run("apply once", func(t *testing.T) { testApplyOnce(t, open(t)) })
	t.Run("failed apply rolls back", func(t *testing.T) { testApplyRollback(t, open(t)) })
	t.Run("rows require their group chat", func(t *testing.T) { testOrphanRows(t, open(t)) })
	t.Run("member and message counters", func(t *testing.T) { testCounters(t, open(t)) })
	t.Run("rename and delete", func(t *testing.T) { testRenameAndDelete(t, open(t)) })
	t.Run("list paging", func(t *testing.T) { testListPaging(t, open(t)) })
	t.Run("list by member", func(t *testing.T) { testListByMember(t, open(t)) })
	t.Run("get missing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("reset", func(t *testing.T) { testReset(t, open(t)) })
	t.Run("checkpoints", func(t *testing.T) { testCheckpoints(t, open(t)) })
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedChat(t *testing.T, rm storage.ReadModel, eventID, chatID, owner string, createdAt time.Time) {
	t.Helper()
	applied, err := rm.ApplyOnce(context.Background(), eventID, func(ctx context.Context, tx storage.ReadModelTx) error {
		if err := tx.InsertGroupChat(ctx, storage.GroupChatRecord{ID: chatID, Name: "chat " + chatID, OwnerID: owner, CreatedAt: createdAt, UpdatedAt: createdAt}); err != nil {
			return err
		}
		return tx.InsertMember(ctx, storage.MemberRecord{ID: "m-" + chatID + "-" + owner, GroupChatID: chatID, UserAccountID: owner, Role: "ADMIN", JoinedAt: createdAt})
	})
	if err != nil {
		t.Fatalf("seed %s: %v", chatID, err)
	}
	if !applied {
		t.Fatalf("seed %s was not applied", chatID)
	}
}

func testApplyOnce(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)

	calls := 0
	applied, err := rm.ApplyOnce(ctx, "evt-1", func(context.Context, storage.ReadModelTx) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if applied || calls != 0 {
		t.Fatalf("duplicate event applied=%v calls=%d", applied, calls)
	}

	detail, err := rm.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.MemberCount != 1 || len(detail.Members) != 1 {
		t.Fatalf("member count = %d rows = %d, want 1", detail.MemberCount, len(detail.Members))
	}
	if detail.OwnerID != "user-admin" || detail.Name != "chat chat-1" || !detail.CreatedAt.Equal(baseTime) {
		t.Fatalf("detail = %+v", detail.GroupChatRecord)
	}
}

func testApplyRollback(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := rm.ApplyOnce(ctx, "evt-1", func(ctx context.Context, tx storage.ReadModelTx) error {
		if err := tx.InsertGroupChat(ctx, storage.GroupChatRecord{ID: "chat-1", Name: "x", OwnerID: "u", CreatedAt: baseTime, UpdatedAt: baseTime}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := rm.Get(ctx, "chat-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected rolled back insert, got %v", err)
	}
	// The event id must not be marked applied after a failure.
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)
}

func testOrphanRows(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	inserts := map[string]func(context.Context, storage.ReadModelTx) error{
		"member": func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.InsertMember(ctx, storage.MemberRecord{ID: "m-bob", GroupChatID: "chat-404", UserAccountID: "user-bob", Role: "MEMBER", JoinedAt: baseTime})
		},
		"message": func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.InsertMessage(ctx, storage.MessageRecord{ID: "msg-1", GroupChatID: "chat-404", SenderID: "user-bob", Text: "hi", CreatedAt: baseTime, UpdatedAt: baseTime})
		},
	}
	for name, insert := range inserts {
		eventID := "evt-orphan-" + name
		applied, err := rm.ApplyOnce(ctx, eventID, insert)
		if err == nil || applied {
			t.Fatalf("orphan %s: applied=%v err=%v, want failure", name, applied, err)
		}
		// The failed event stays unrecorded so it can be retried.
		applied, err = rm.ApplyOnce(ctx, eventID, func(context.Context, storage.ReadModelTx) error { return nil })
		if err != nil || !applied {
			t.Fatalf("retry %s: applied=%v err=%v", name, applied, err)
		}
	}
	list, err := rm.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %+v, want empty", list)
	}
}

func testCounters(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)

	steps := []func(context.Context, storage.ReadModelTx) error{
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.InsertMember(ctx, storage.MemberRecord{ID: "m-bob", GroupChatID: "chat-1", UserAccountID: "user-bob", Role: "MEMBER", JoinedAt: baseTime.Add(time.Second)})
		},
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.InsertMessage(ctx, storage.MessageRecord{ID: "msg-2", GroupChatID: "chat-1", SenderID: "user-bob", Text: "second", CreatedAt: baseTime.Add(3 * time.Second), UpdatedAt: baseTime.Add(3 * time.Second)})
		},
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.InsertMessage(ctx, storage.MessageRecord{ID: "msg-1", GroupChatID: "chat-1", SenderID: "user-admin", Text: "first", CreatedAt: baseTime.Add(2 * time.Second), UpdatedAt: baseTime.Add(2 * time.Second)})
		},
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.UpdateMessage(ctx, "chat-1", "msg-1", "first edited", baseTime.Add(4*time.Second))
		},
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.MarkMessageDeleted(ctx, "chat-1", "msg-2", baseTime.Add(5*time.Second))
		},
		func(ctx context.Context, tx storage.ReadModelTx) error {
			return tx.DeleteMember(ctx, "chat-1", "user-bob", baseTime.Add(6*time.Second))
		},
	}
	for i, step := range steps {
		if _, err := rm.ApplyOnce(ctx, fmt.Sprintf("evt-step-%d", i), step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	detail, err := rm.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.MemberCount != 1 || detail.MessageCount != 1 {
		t.Fatalf("counts members=%d messages=%d, want 1 and 1", detail.MemberCount, detail.MessageCount)
	}
	if len(detail.Members) != 1 || detail.Members[0].UserAccountID != "user-admin" {
		t.Fatalf("members = %+v", detail.Members)
	}
	if len(detail.Messages) != 2 {
		t.Fatalf("messages = %+v", detail.Messages)
	}
	first, second := detail.Messages[0], detail.Messages[1]
	if first.ID != "msg-1" || first.Text != "first edited" || first.Deleted || !first.UpdatedAt.Equal(baseTime.Add(4*time.Second)) {
		t.Fatalf("first message = %+v", first)
	}
	if second.ID != "msg-2" || !second.Deleted {
		t.Fatalf("second message = %+v", second)
	}
}

func testRenameAndDelete(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)

	if _, err := rm.ApplyOnce(ctx, "evt-2", func(ctx context.Context, tx storage.ReadModelTx) error {
		return tx.RenameGroupChat(ctx, "chat-1", "Renamed", baseTime.Add(time.Minute))
	}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	detail, err := rm.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Name != "Renamed" || !detail.UpdatedAt.Equal(baseTime.Add(time.Minute)) {
		t.Fatalf("renamed = %+v", detail.GroupChatRecord)
	}

	if _, err := rm.ApplyOnce(ctx, "evt-3", func(ctx context.Context, tx storage.ReadModelTx) error {
		return tx.MarkGroupChatDeleted(ctx, "chat-1", baseTime.Add(2*time.Minute))
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	detail, err = rm.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if !detail.Deleted {
		t.Fatal("expected deleted flag")
	}
	list, err := rm.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("deleted chat listed: %+v", list)
	}
}

func testListPaging(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		seedChat(t, rm, fmt.Sprintf("evt-%d", i), fmt.Sprintf("chat-%d", i), "user-admin", baseTime.Add(time.Duration(i)*time.Minute))
	}

	all, err := rm.List(ctx, 0, -5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := chatIDs(all); !reflect.DeepEqual(got, []string{"chat-3", "chat-2", "chat-1"}) {
		t.Fatalf("list order = %v", got)
	}
	page, err := rm.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if got := chatIDs(page); !reflect.DeepEqual(got, []string{"chat-2"}) {
		t.Fatalf("page = %v", got)
	}
	past, err := rm.List(ctx, 10, 10)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("past end = %v", chatIDs(past))
	}
}

func testListByMember(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	seedChat(t, rm, "evt-1", "chat-1", "user-a", baseTime)
	seedChat(t, rm, "evt-2", "chat-2", "user-b", baseTime.Add(time.Minute))
	seedChat(t, rm, "evt-3", "chat-3", "user-a", baseTime.Add(2*time.Minute))
	if _, err := rm.ApplyOnce(ctx, "evt-4", func(ctx context.Context, tx storage.ReadModelTx) error {
		return tx.InsertMember(ctx, storage.MemberRecord{ID: "m-a-2", GroupChatID: "chat-2", UserAccountID: "user-a", Role: "MEMBER", JoinedAt: baseTime.Add(3 * time.Minute)})
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := rm.ApplyOnce(ctx, "evt-5", func(ctx context.Context, tx storage.ReadModelTx) error {
		return tx.MarkGroupChatDeleted(ctx, "chat-3", baseTime.Add(4*time.Minute))
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := rm.ListByMember(ctx, "user-a", 0, 0)
	if err != nil {
		t.Fatalf("list by member: %v", err)
	}
	if ids := chatIDs(got); !reflect.DeepEqual(ids, []string{"chat-2", "chat-1"}) {
		t.Fatalf("user-a chats = %v", ids)
	}
	none, err := rm.ListByMember(ctx, "user-nobody", 10, 0)
	if err != nil {
		t.Fatalf("list by member: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no chats, got %v", chatIDs(none))
	}
}

func testGetMissing(t *testing.T, rm storage.ReadModel) {
	if _, err := rm.Get(context.Background(), "chat-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testReset(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)
	if err := rm.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := rm.Get(ctx, "chat-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}
	// Applied markers are cleared too, so the same event projects again.
	seedChat(t, rm, "evt-1", "chat-1", "user-admin", baseTime)
}

func testCheckpoints(t *testing.T, rm storage.ReadModel) {
	ctx := context.Background()
	got, err := rm.GetCheckpoint(ctx, "groupchat")
	if err != nil {
		t.Fatalf("get missing checkpoint: %v", err)
	}
	if got != 0 {
		t.Fatalf("missing checkpoint = %d, want 0", got)
	}
	if err := rm.SaveCheckpoint(ctx, "groupchat", 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := rm.SaveCheckpoint(ctx, "groupchat", 9); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := rm.SaveCheckpoint(ctx, "other", 1); err != nil {
		t.Fatalf("save other: %v", err)
	}
	got, err = rm.GetCheckpoint(ctx, "groupchat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 9 {
		t.Fatalf("checkpoint = %d, want 9", got)
	}
}

func chatIDs(records []storage.GroupChatRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID)
	}
	return out
}
