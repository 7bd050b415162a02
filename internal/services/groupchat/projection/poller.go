package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/groupchat/internal/platform/logging"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
	"go.uber.org/zap"
)

const (
	// DefaultConsumer names the read model updater checkpoint.
	DefaultConsumer     = "groupchat-read-model"
	DefaultBatchSize    = 100
	DefaultPollInterval = time.Second
)

// PollerOptions configures a Poller. Zero values take the defaults.
type PollerOptions struct {
	Consumer  string
	BatchSize int
	Interval  time.Duration
	Logger    *zap.Logger
}

// Poller reads the journal feed after a checkpoint and hands batches to a
// Projector.
type Poller struct {
	feed        storage.JournalFeed
	checkpoints storage.CheckpointStore
	projector   *Projector
	consumer    string
	batchSize   int
	interval    time.Duration
	logger      *zap.Logger
}

// NewPoller builds a Poller.
func NewPoller(feed storage.JournalFeed, checkpoints storage.CheckpointStore, projector *Projector, opts PollerOptions) (*Poller, error) {
	if feed == nil {
		return nil, errors.New("journal feed is required")
	}
	if checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if projector == nil {
		return nil, errors.New("projector is required")
	}
	consumer := strings.TrimSpace(opts.Consumer)
	if consumer == "" {
		consumer = DefaultConsumer
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		feed:        feed,
		checkpoints: checkpoints,
		projector:   projector,
		consumer:    consumer,
		batchSize:   batchSize,
		interval:    interval,
		logger:      logging.OrNop(opts.Logger).With(zap.String("consumer", consumer)),
	}, nil
}

// RunOnce delivers at most one batch and returns the number of records read.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	position, err := p.checkpoints.GetCheckpoint(ctx, p.consumer)
	if err != nil {
		return 0, fmt.Errorf("get checkpoint: %w", err)
	}
	records, err := p.feed.ReadAfter(ctx, position, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read journal feed: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	result, err := p.projector.Handle(ctx, &feedDelivery{poller: p, records: records})
	if err != nil {
		return 0, err
	}
	p.logger.Debug("projected batch",
		zap.Uint64("from", records[0].Position),
		zap.Uint64("to", records[len(records)-1].Position),
		zap.Int("applied", result.Applied),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("skipped", result.Skipped),
	)
	return len(records), nil
}

// CatchUp delivers batches until the feed is drained and returns the number
// of records read.
func (p *Poller) CatchUp(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := p.RunOnce(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n < p.batchSize {
			return total, nil
		}
	}
}

// Run catches up every interval until ctx is canceled. Batch failures are
// logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.CatchUp(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("catch up", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Rebuild clears the read model and the checkpoint, then replays the whole
// journal.
func (p *Poller) Rebuild(ctx context.Context) (int, error) {
	if err := p.projector.store.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset read model: %w", err)
	}
	if err := p.checkpoints.SaveCheckpoint(ctx, p.consumer, 0); err != nil {
		return 0, fmt.Errorf("reset checkpoint: %w", err)
	}
	return p.CatchUp(ctx)
}

// feedDelivery acknowledges by saving the checkpoint at its last record.
type feedDelivery struct {
	poller  *Poller
	records []storage.JournalRecord
}

func (d *feedDelivery) Records() []storage.JournalRecord {
	return d.records
}

func (d *feedDelivery) Ack(ctx context.Context) error {
	last := d.records[len(d.records)-1].Position
	return d.poller.checkpoints.SaveCheckpoint(ctx, d.poller.consumer, last)
}

func (d *feedDelivery) Fail(_ context.Context, err error) {
	d.poller.logger.Warn("delivery failed",
		zap.Uint64("from", d.records[0].Position),
		zap.Int("records", len(d.records)),
		zap.Error(err),
	)
}
