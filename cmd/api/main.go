package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/venue-seat-holds/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/venue-seat-holds/internal/adapters/mongo"
	"github.com/robertarktes/venue-seat-holds/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/venue-seat-holds/internal/adapters/redis"
	"github.com/robertarktes/venue-seat-holds/internal/config"
	"github.com/robertarktes/venue-seat-holds/internal/events"
	httphandler "github.com/robertarktes/venue-seat-holds/internal/http"
	"github.com/robertarktes/venue-seat-holds/internal/idempotency"
	"github.com/robertarktes/venue-seat-holds/internal/inventory"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/rateLimit"
	"github.com/robertarktes/venue-seat-holds/internal/ticketing"
	"github.com/robertarktes/venue-seat-holds/internal/venue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel)

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "svh-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer observability.ShutdownWithTimeout(shutdownOtel, logger)
	var ready []httphandler.Pinger

	var layout venue.LayoutSource
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		layout = mongoadapter.NewVenueCatalog(mongoClient.Database("svh"), logger)
	}

	seats, err := venue.Load(context.Background(), layout, cfg.VenueID, cfg.VenueRows, cfg.VenueSeatsPerRow)
	if err != nil {
		log.Fatalf("failed to load venue: %v", err)
	}
	inv, err := inventory.New(seats)
	if err != nil {
		log.Fatalf("failed to build inventory: %v", err)
	}

	var sink events.Sink
	switch cfg.EventSink {
	case config.EventSinkRabbit:
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		rabbitPub, err := rabbit.NewPublisher(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		sink = rabbit.NewEventSink(rabbitPub)
	case config.EventSinkOutbox:
		pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		repo := crdb.NewRepository(pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("failed to prepare outbox: %v", err)
		}
		sink = crdb.NewOutboxSink(repo)
		ready = append(ready, pool.Ping)
	default:
		sink = events.NewLogSink(logger)
	}
	dispatcher := events.NewDispatcher(sink, cfg.EventBuffer, logger)

	svc, err := ticketing.NewService(inv, cfg.HoldTTL,
		ticketing.WithLogger(logger),
		ticketing.WithEvents(dispatcher),
	)
	if err != nil {
		log.Fatalf("failed to create ticket service: %v", err)
	}

	var rl rateLimit.Limiter = rateLimit.NewLocalLimiter()
	var idemp *idempotency.Idempotency
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient)
		rl = rateLimit.NewRateLimiter(redisCache)
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotencyStore(redisClient), time.Hour)
		ready = append(ready, redisCache.Ping)
	}

	handlers := httphandler.NewHandlers(svc, ready...)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithFields(map[string]interface{}{
		"addr":     cfg.HTTPAddr,
		"seats":    inv.Total(),
		"hold_ttl": cfg.HoldTTL.String(),
	}).Info("API started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if err := svc.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("ticket service shutdown")
	}
	if err := dispatcher.Close(ctx); err != nil {
		logger.WithError(err).Error("event dispatcher shutdown")
	}
	logger.Info("Server exiting")
}
