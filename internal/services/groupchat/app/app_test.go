package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, backend string) Config {
	t.Helper()
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")
	if backend == BackendBadger {
		journalPath = filepath.Join(dir, "journal")
	}
	return Config{
		Backend:          backend,
		JournalPath:      journalPath,
		ReadModelPath:    filepath.Join(dir, "readmodel.db"),
		Consumer:         "test",
		BatchSize:        10,
		SnapshotInterval: 2,
	}
}

func TestOpenBackends(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendBadger, BackendMemory, " SQLite "} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			rt, err := Open(testConfig(t, backend), zap.NewNop())
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer func() {
				if err := rt.Close(); err != nil {
					t.Fatalf("close: %v", err)
				}
			}()

			chat, _, err := rt.Repository.Create(ctx, groupchat.MustName("Team"), "user-admin")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := rt.Poller.CatchUp(ctx); err != nil {
				t.Fatalf("catch up: %v", err)
			}
			detail, err := rt.ReadModel.Get(ctx, string(chat.ID()))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if detail.Name != "Team" || detail.MemberCount != 1 {
				t.Fatalf("detail = %+v", detail.GroupChatRecord)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(testConfig(t, "cassandra"), nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNilRuntimeClose(t *testing.T) {
	var rt *Runtime
	if err := rt.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
