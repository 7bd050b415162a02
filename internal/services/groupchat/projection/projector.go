package projection

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

const tracerName = "github.com/louisbranch/groupchat/internal/services/groupchat/projection"

// Delivery is a batch of journal records handed to a consumer. Ack confirms
// the whole batch; Fail reports that it was not applied and will be
// delivered again.
type Delivery interface {
	Records() []storage.JournalRecord
	Ack(ctx context.Context) error
	Fail(ctx context.Context, err error)
}

// Result summarizes one consumed batch.
type Result struct {
	Applied int
	// Duplicates were already applied by an earlier delivery.
	Duplicates int
	// Skipped carried an unknown event type.
	Skipped int
}

// Projector applies journal records to the read model.
type Projector struct {
	codec  *event.Codec
	store  storage.ReadModelStore
	logger *zap.Logger
	tracer trace.Tracer
}

// NewProjector builds a Projector writing to store.
func NewProjector(codec *event.Codec, store storage.ReadModelStore, logger *zap.Logger) (*Projector, error) {
	if codec == nil {
		return nil, errors.New("event codec is required")
	}
	if len(codec.Types()) == 0 {
		return nil, errors.New("event codec has no registered types")
	}
	if store == nil {
		return nil, errors.New("read model store is required")
	}
	return &Projector{
		codec:  codec,
		store:  store,
		logger: logging.OrNop(logger),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Consume applies records in order. Records with an unknown event type are
// logged and skipped. Any other failure stops the batch; records applied
// before the failure stay applied and are recognized on redelivery.
func (p *Projector) Consume(ctx context.Context, records []storage.JournalRecord) (result Result, err error) {
	ctx, span := p.tracer.Start(ctx, "groupchat.Project", trace.WithAttributes(attribute.Int("journal.records", len(records))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !p.codec.Known(event.Type(rec.EventType)) {
			p.logger.Warn("skip unknown event type",
				zap.String("event_id", rec.EventID),
				zap.String("event_type", rec.EventType),
				zap.Uint64("position", rec.Position),
			)
			result.Skipped++
			continue
		}
		evt, err := storage.DecodeRecord(p.codec, rec)
		if err != nil {
			return result, fmt.Errorf("decode record %d: %w", rec.Position, err)
		}

		applied, err := p.store.ApplyOnce(ctx, evt.ID, func(ctx context.Context, tx storage.ReadModelTx) error {
			return groupchat.Dispatch(evt, applier{ctx: ctx, tx: tx, evt: evt})
		})
		if err != nil {
			return result, fmt.Errorf("project %s %s: %w", evt.Type(), evt.ID, err)
		}
		if applied {
			result.Applied++
		} else {
			result.Duplicates++
		}
	}
	return result, nil
}

// Handle consumes the delivery and acknowledges it. On failure the delivery
// is failed and left unacknowledged.
func (p *Projector) Handle(ctx context.Context, delivery Delivery) (Result, error) {
	result, err := p.Consume(ctx, delivery.Records())
	if err != nil {
		delivery.Fail(ctx, err)
		return result, err
	}
	if err := delivery.Ack(ctx); err != nil {
		return result, fmt.Errorf("ack delivery: %w", err)
	}
	return result, nil
}
