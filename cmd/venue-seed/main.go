package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/venue-seat-holds/internal/adapters/mongo"
	"github.com/robertarktes/venue-seat-holds/internal/config"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/venue"
)

// venue-seed stores a generated grid layout under VENUE_ID so the API can
// load it from MongoDB.
func main() {
	name := flag.String("name", "Main Hall", "venue display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoURI == "" || cfg.VenueID == "" {
		log.Fatal("venue-seed requires MONGO_URI and VENUE_ID")
	}
	logger := observability.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	seats, err := venue.Load(ctx, nil, "", cfg.VenueRows, cfg.VenueSeatsPerRow)
	if err != nil {
		log.Fatalf("invalid layout: %v", err)
	}
	catalog := mongoadapter.NewVenueCatalog(client.Database("svh"), logger)
	if err := catalog.SaveLayout(ctx, cfg.VenueID, *name, seats); err != nil {
		log.Fatalf("failed to save layout: %v", err)
	}
	logger.WithFields(map[string]interface{}{"venue_id": cfg.VenueID, "seats": len(seats)}).Info("venue layout saved")
}
