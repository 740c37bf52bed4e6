package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/venue-seat-holds/internal/adapters/crdb"
	"github.com/robertarktes/venue-seat-holds/internal/adapters/rabbit"
	"github.com/robertarktes/venue-seat-holds/internal/config"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.CRDBDSN == "" || cfg.RabbitURL == "" {
		log.Fatal("outbox publisher requires CRDB_DSN and RABBIT_URL")
	}

	logger := observability.NewLogger(cfg.LogLevel)

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "svh-outbox-publisher")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer observability.ShutdownWithTimeout(shutdownOtel, logger)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to prepare outbox: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	publisher := outbox.NewPublisher(repo, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go publisher.Run(ctx, time.Second)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown outbox publisher")
}
