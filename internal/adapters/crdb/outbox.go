package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   int64
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED
	DedupeKey     string
}

// InsertOutbox returns domain.ErrConflict when a record with the same dedupe
// key already exists.
func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrConflict, "outbox dedupe key %s", record.DedupeKey)
	}
	return nil
}

// FetchPending locks up to limit unpublished records, oldest first. Other
// relays skip the locked rows.
func (r *Repository) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, publishedAt time.Time) error {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = ANY($1::UUID[])
	`, strIDs, publishedAt)
	return err
}

// OutboxSink records hold events in the outbox for the relay to publish.
type OutboxSink struct {
	repo *Repository
}

func NewOutboxSink(repo *Repository) *OutboxSink {
	return &OutboxSink{repo: repo}
}

func (s *OutboxSink) Publish(ctx context.Context, ev domain.HoldEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode hold event")
	}
	rec := OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "hold",
		AggregateID:   ev.HoldID,
		EventType:     string(ev.Type),
		Payload:       payload,
		DedupeKey:     ev.ID.String(),
	}
	err = s.repo.RetryTx(ctx, func(tx pgx.Tx) error {
		return s.repo.InsertOutbox(ctx, tx, rec)
	})
	if errors.Is(err, domain.ErrConflict) {
		// already recorded by an earlier delivery
		return nil
	}
	return err
}
