// Package badger implements the group chat journal on BadgerDB.
//
// Keys are laid out so prefix scans return records in order:
//
//	journal:<len>:<partition>:<sortkey>  event record
//	feed:<position>                      journal key of the record at position
//	snapshot:<partition>                 newest snapshot
//
// The partition length is zero padded so one partition never prefixes
// another, even when aggregate ids contain ':'.
//
// Values are protobuf-encoded structpb structs.
package badger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"go.uber.org/zap"
)

const (
	journalPrefix  = "journal:"
	feedPrefix     = "feed:"
	snapshotPrefix = "snapshot:"
	sequenceKey    = "seq:feed"

	sequenceBandwidth = 100
)

// Options configures Open.
type Options struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *zap.Logger
}

// Store is a BadgerDB-backed journal.
type Store struct {
	db    *badger.DB
	seq   *badger.Sequence
	codec *event.Codec
	now   func() time.Time

	// mu serializes writers so feed positions follow commit order.
	mu sync.Mutex
}

// Open opens or creates a journal.
func Open(opts Options, codec *event.Codec) (*Store, error) {
	if codec == nil {
		return nil, fmt.Errorf("event codec is required")
	}
	if !opts.InMemory && strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(badgerLogger{logging.OrNop(opts.Logger).Named("badger").Sugar()})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open feed sequence: %w", err)
	}
	return &Store{
		db:    db,
		seq:   seq,
		codec: codec,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the feed sequence and closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var releaseErr error
	if s.seq != nil {
		releaseErr = s.seq.Release()
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	return releaseErr
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func journalKey(partition, sortKey string) []byte {
	return []byte(fmt.Sprintf("%s%08d:%s:%s", journalPrefix, len(partition), partition, sortKey))
}

func feedKey(position uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", feedPrefix, position))
}

func snapshotKey(partition string) []byte {
	return []byte(snapshotPrefix + partition)
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
