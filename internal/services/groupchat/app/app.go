// Package app wires the group chat journal, read model, repository and
// projector for the command binaries.
package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/projection"
	"github.com/louisbranch/groupchat/internal/services/groupchat/repository"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
	badgerstore "github.com/louisbranch/groupchat/internal/services/groupchat/storage/badger"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage/memory"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage/sqlite"
	"go.uber.org/zap"
)

// Journal backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects storage and projection settings shared by every command.
type Config struct {
	Backend          string        `env:"GROUPCHAT_JOURNAL_BACKEND" envDefault:"sqlite"`
	JournalPath      string        `env:"GROUPCHAT_JOURNAL_PATH" envDefault:"data/groupchat-journal.db"`
	ReadModelPath    string        `env:"GROUPCHAT_READMODEL_PATH" envDefault:"data/groupchat-readmodel.db"`
	Consumer         string        `env:"GROUPCHAT_RMU_CONSUMER" envDefault:"groupchat-read-model"`
	BatchSize        int           `env:"GROUPCHAT_RMU_BATCH_SIZE" envDefault:"100"`
	PollInterval     time.Duration `env:"GROUPCHAT_RMU_POLL_INTERVAL" envDefault:"1s"`
	SnapshotInterval uint64        `env:"GROUPCHAT_SNAPSHOT_INTERVAL" envDefault:"100"`
	LogLevel         string        `env:"GROUPCHAT_LOG_LEVEL" envDefault:"info"`
}

// BindFlags registers flags that override the environment values in cfg.
func (cfg *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Journal backend: sqlite, badger or memory")
	fs.StringVar(&cfg.JournalPath, "journal-path", cfg.JournalPath, "Journal database path (badger: directory)")
	fs.StringVar(&cfg.ReadModelPath, "readmodel-path", cfg.ReadModelPath, "Read model SQLite database path")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Read model updater checkpoint name")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Journal records per projection batch")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Journal poll interval")
	fs.Uint64Var(&cfg.SnapshotInterval, "snapshot-interval", cfg.SnapshotInterval, "Events between aggregate snapshots (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
}

// Runtime holds the opened stores and services.
type Runtime struct {
	Codec      *event.Codec
	Journal    storage.Journal
	ReadModel  storage.ReadModel
	Repository *repository.Repository
	Projector  *projection.Projector
	Poller     *projection.Poller
}

// Open opens the configured stores and builds the services over them.
func Open(cfg Config, logger *zap.Logger) (*Runtime, error) {
	codec := groupchat.NewCodec()
	journal, err := OpenJournal(cfg, codec, logger)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Codec: codec, Journal: journal}

	rt.ReadModel, err = OpenReadModel(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Repository, err = repository.New(journal, repository.Options{
		Snapshots:        journal,
		SnapshotInterval: cfg.SnapshotInterval,
		Logger:           logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Projector, err = projection.NewProjector(codec, rt.ReadModel, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Poller, err = projection.NewPoller(journal, rt.ReadModel, rt.Projector, projection.PollerOptions{
		Consumer:  cfg.Consumer,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.PollInterval,
		Logger:    logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close closes the read model and the journal.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	if rt.ReadModel != nil {
		if err := rt.ReadModel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close read model: %w", err))
		}
	}
	if rt.Journal != nil {
		if err := rt.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenJournal opens the journal backend named by cfg.Backend.
func OpenJournal(cfg Config, codec *event.Codec, logger *zap.Logger) (storage.Journal, error) {
	switch backend(cfg) {
	case BackendSQLite:
		if err := ensureParentDir(cfg.JournalPath); err != nil {
			return nil, err
		}
		store, err := sqlite.OpenJournal(cfg.JournalPath, codec)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return store, nil
	case BackendBadger:
		store, err := badgerstore.Open(badgerstore.Options{Dir: cfg.JournalPath, Logger: logger}, codec)
		if err != nil {
			return nil, fmt.Errorf("open badger journal: %w", err)
		}
		return store, nil
	case BackendMemory:
		return memory.NewJournal(codec), nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}

// OpenReadModel opens the SQLite read model, or an in-memory one for the
// memory backend.
func OpenReadModel(cfg Config) (storage.ReadModel, error) {
	if backend(cfg) == BackendMemory {
		return memory.NewReadModel(), nil
	}
	if err := ensureParentDir(cfg.ReadModelPath); err != nil {
		return nil, err
	}
	store, err := sqlite.OpenReadModel(cfg.ReadModelPath)
	if err != nil {
		return nil, fmt.Errorf("open read model: %w", err)
	}
	return store, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(strings.TrimSpace(path))
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func backend(cfg Config) string {
	return strings.ToLower(strings.TrimSpace(cfg.Backend))
}
