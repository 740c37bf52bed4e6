package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

const (
	SerializationFailureCode = "40001"

	maxTxAttempts = 3
	retryBackoff  = 20 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type STRING NOT NULL,
	aggregate_id INT8 NOT NULL,
	event_type STRING NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status STRING NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED')),
	dedupe_key STRING NOT NULL UNIQUE,
	INDEX outbox_pending (status, created_at)
)`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return errors.Wrap(err, "create outbox table")
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if isSerializationFailure(err) {
			return errors.Mark(err, domain.ErrSerializationFailure)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return errors.Mark(err, domain.ErrSerializationFailure)
		}
		return err
	}
	return nil
}

// RetryTx runs fn through WithTx and reruns it while CockroachDB reports a
// serialization failure, up to maxTxAttempts.
func (r *Repository) RetryTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.WithTx(ctx, fn)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return errors.Wrapf(err, "transaction failed after %d attempts", maxTxAttempts)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode
}
