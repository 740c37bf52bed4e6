package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/venue-seat-holds/internal/adapters/mongo"
	"github.com/robertarktes/venue-seat-holds/internal/adapters/rabbit"
	"github.com/robertarktes/venue-seat-holds/internal/config"
	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoURI == "" || cfg.RabbitURL == "" {
		log.Fatal("audit consumer requires MONGO_URI and RABBIT_URL")
	}

	logger := observability.NewLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("svh"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "svh.audit.q", logger)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	logger.Info("audit consumer started")
	err = consumer.Consume(ctx, func(ctx context.Context, ev domain.HoldEvent) error {
		return audit.Record(ctx, ev)
	})
	if err != nil {
		logger.WithError(err).Error("audit consumer stopped")
	}
	logger.Info("Shutdown audit consumer")
}
