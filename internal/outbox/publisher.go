package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/venue-seat-holds/internal/adapters/crdb"
	"github.com/robertarktes/venue-seat-holds/internal/adapters/rabbit"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, publishedAt time.Time) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Publisher relays outbox records to the broker. A batch is marked published
// only if every record in it was accepted, so delivery is at least once.
type Publisher struct {
	store     Store
	broker    Broker
	logger    observability.Logger
	batchSize int
}

func NewPublisher(store Store, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{store: store, broker: broker, logger: logger, batchSize: 50}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	p.logger.Info("outbox publisher started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.RelayBatch(ctx)
			if err != nil {
				p.logger.WithError(err).Error("outbox relay failed")
				continue
			}
			if n > 0 {
				p.logger.WithField("records", n).Debug("outbox batch relayed")
			}
		}
	}
}

// RelayBatch publishes one batch and returns how many records it relayed.
func (p *Publisher) RelayBatch(ctx context.Context) (int, error) {
	relayed := 0
	err := p.store.WithTx(ctx, func(tx pgx.Tx) error {
		records, err := p.store.FetchPending(ctx, tx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, rec := range records {
			g.Go(func() error {
				return p.broker.Publish(gctx, rec.EventType, rabbit.Message(rec.DedupeKey, rec.Payload))
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		now := time.Now()
		if err := p.store.MarkPublished(ctx, tx, ids, now); err != nil {
			return err
		}
		observability.OutboxLag.Set(now.Sub(records[0].CreatedAt).Seconds())
		relayed = len(records)
		return nil
	})
	return relayed, err
}
