package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// AuditLogger keeps an append-only trail of hold events.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("hold_audit"),
		logger: logger,
	}
}

type AuditLog struct {
	ID               string    `bson:"_id"`
	Action           string    `bson:"action"`
	HoldID           int64     `bson:"hold_id"`
	Requester        string    `bson:"requester"`
	ConfirmationCode string    `bson:"confirmation_code,omitempty"`
	Seats            []SeatDoc `bson:"seats"`
	OccurredAt       time.Time `bson:"occurred_at"`
	RecordedAt       time.Time `bson:"recorded_at"`
}

// Record stores ev keyed by its event id, so redelivered events are written
// once.
func (a *AuditLogger) Record(ctx context.Context, ev domain.HoldEvent) error {
	seats := make([]SeatDoc, len(ev.Seats))
	for i, s := range ev.Seats {
		seats[i] = SeatDoc{Row: s.Row, Number: s.Number, Quality: s.Quality}
	}
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	log := AuditLog{
		ID:               id.String(),
		Action:           string(ev.Type),
		HoldID:           ev.HoldID,
		Requester:        ev.Requester,
		ConfirmationCode: ev.ConfirmationCode,
		Seats:            seats,
		OccurredAt:       ev.OccurredAt,
		RecordedAt:       time.Now().UTC(),
	}

	_, err := a.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		a.logger.WithError(err).WithField("hold_id", ev.HoldID).Error("failed to insert audit log")
		return err
	}
	return nil
}

// History returns the audit trail of a hold in occurrence order.
func (a *AuditLogger) History(ctx context.Context, holdID int64) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx, bson.M{"hold_id": holdID}, options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
