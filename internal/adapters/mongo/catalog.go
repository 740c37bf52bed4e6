package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// VenueCatalog stores seat layouts per venue.
type VenueCatalog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewVenueCatalog(db *mongo.Database, logger observability.Logger) *VenueCatalog {
	return &VenueCatalog{
		coll:   db.Collection("venues"),
		logger: logger,
	}
}

type VenueDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Seats     []SeatDoc `bson:"seats"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type SeatDoc struct {
	Row     int `bson:"row"`
	Number  int `bson:"number"`
	Quality int `bson:"quality"`
}

func (c *VenueCatalog) GetLayout(ctx context.Context, venueID string) ([]domain.Seat, error) {
	var doc VenueDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": venueID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrNotFound, "venue %s", venueID)
	}
	if err != nil {
		c.logger.WithError(err).WithField("venue_id", venueID).Error("failed to get venue")
		return nil, err
	}

	seats := make([]domain.Seat, len(doc.Seats))
	for i, s := range doc.Seats {
		seats[i] = domain.Seat{Row: s.Row, Number: s.Number, Quality: s.Quality}
	}
	return seats, nil
}

// SaveLayout creates or replaces the layout of a venue.
func (c *VenueCatalog) SaveLayout(ctx context.Context, venueID, name string, seats []domain.Seat) error {
	docs := make([]SeatDoc, len(seats))
	for i, s := range seats {
		docs[i] = SeatDoc{Row: s.Row, Number: s.Number, Quality: s.Quality}
	}

	now := time.Now()
	_, err := c.coll.UpdateOne(ctx,
		bson.M{"_id": venueID},
		bson.M{
			"$set":         bson.M{"name": name, "seats": docs, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.logger.WithError(err).WithField("venue_id", venueID).Error("failed to save venue")
		return err
	}
	return nil
}
