package seed

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/louisbranch/groupchat/internal/services/groupchat/app"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/repository"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage/memory"
	"go.uber.org/zap"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("seed", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ChatName != "Demo chat" || cfg.Admin != "user-admin" || cfg.Messages != 3 {
		t.Fatalf("config = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Members, []string{"user-alice", "user-bob"}) {
		t.Fatalf("members = %v", cfg.Members)
	}
}

func TestParseConfig_MembersFlag(t *testing.T) {
	t.Setenv("GROUPCHAT_SEED_MEMBERS", "user-x")
	cfg, err := ParseConfig(flag.NewFlagSet("seed", flag.ContinueOnError), []string{"-members", " user-a, ,user-b,user-a "})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !reflect.DeepEqual(cfg.Members, []string{"user-a", "user-b"}) {
		t.Fatalf("members = %v", cfg.Members)
	}
}

func TestRunSeedsAndProjects(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := Config{
		Config: app.Config{
			Backend:       app.BackendSQLite,
			JournalPath:   filepath.Join(dir, "journal.db"),
			ReadModelPath: filepath.Join(dir, "readmodel.db"),
			Consumer:      "seed-test",
			BatchSize:     5,
			LogLevel:      "error",
		},
		ChatName: "Demo",
		Admin:    "user-admin",
		Members:  []string{"user-alice", "user-admin"},
		Messages: 2,
	}

	var out bytes.Buffer
	if err := Run(ctx, cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	chatID := strings.TrimSpace(out.String())
	if chatID == "" {
		t.Fatal("expected chat id on output")
	}

	rt, err := app.Open(cfg.Config, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	detail, err := rt.ReadModel.Get(ctx, chatID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Name != "Demo" || detail.MemberCount != 2 || detail.MessageCount != 4 {
		t.Fatalf("detail = %+v", detail.GroupChatRecord)
	}
}

func TestRunRejectsInvalidName(t *testing.T) {
	cfg := Config{
		Config:   app.Config{Backend: app.BackendMemory, LogLevel: "error"},
		ChatName: "   ",
		Admin:    "user-admin",
	}
	if err := Run(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for blank chat name")
	}
}

func TestSeedChatReportsStatusCode(t *testing.T) {
	repo, err := repository.New(memory.NewJournal(groupchat.NewCodec()), repository.Options{})
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = seedChat(ctx, repo, Config{ChatName: "Demo", Admin: "user-admin"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(err.Error(), "create group chat: Canceled") {
		t.Fatalf("error = %q", err)
	}
}

func TestCommandFailedUsesDomainCode(t *testing.T) {
	err := commandFailed("add member user-bob", groupchat.ErrNotAdministrator)
	if !errors.Is(err, groupchat.ErrNotAdministrator) {
		t.Fatalf("expected ErrNotAdministrator in chain, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "add member user-bob: PermissionDenied: ") {
		t.Fatalf("error = %q", err)
	}
}
