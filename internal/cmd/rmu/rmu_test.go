package rmu

import (
	"context"
	"flag"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("rmu", flag.ContinueOnError)
	t.Setenv("GROUPCHAT_JOURNAL_BACKEND", "badger")
	t.Setenv("GROUPCHAT_RMU_BATCH_SIZE", "25")

	cfg, err := ParseConfig(fs, []string{"-consumer", "rmu-e2e", "-poll-interval", "250ms"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Backend != "badger" {
		t.Fatalf("backend = %q, want badger", cfg.Backend)
	}
	if cfg.BatchSize != 25 {
		t.Fatalf("batch size = %d, want 25", cfg.BatchSize)
	}
	if cfg.Consumer != "rmu-e2e" {
		t.Fatalf("consumer = %q, want rmu-e2e", cfg.Consumer)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval = %s, want 250ms", cfg.PollInterval)
	}
	if cfg.SnapshotInterval != 100 || cfg.LogLevel != "info" {
		t.Fatalf("defaults = %+v", cfg.Config)
	}
}

func TestParseConfig_RejectsBadEnv(t *testing.T) {
	t.Setenv("GROUPCHAT_RMU_BATCH_SIZE", "many")
	if _, err := ParseConfig(flag.NewFlagSet("rmu", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected error for invalid batch size")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	cfg, err := ParseConfig(flag.NewFlagSet("rmu", flag.ContinueOnError), []string{
		"-journal-path", filepath.Join(dir, "journal.db"),
		"-readmodel-path", filepath.Join(dir, "readmodel.db"),
		"-poll-interval", "10ms",
		"-log-level", "error",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := Run(ctx, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
}
