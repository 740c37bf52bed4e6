package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	EventSinkLog    = "log"
	EventSinkRabbit = "rabbit"
	EventSinkOutbox = "outbox"
)

type Config struct {
	HTTPAddr         string
	HoldTTL          time.Duration
	VenueID          string
	VenueRows        int
	VenueSeatsPerRow int
	CRDBDSN          string
	MongoURI         string
	RedisAddr        string
	RabbitURL        string
	EventSink        string
	EventBuffer      int
	OTLPEndpoint     string
	LogLevel         string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL := 5 * time.Minute
	if v := os.Getenv("HOLD_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse HOLD_TTL")
		}
		if d <= 0 {
			return nil, errors.Newf("HOLD_TTL must be positive, got %s", d)
		}
		holdTTL = d
	}

	rows, err := intEnv("VENUE_ROWS", 10)
	if err != nil {
		return nil, err
	}
	perRow, err := intEnv("VENUE_SEATS_PER_ROW", 10)
	if err != nil {
		return nil, err
	}
	buffer, err := intEnv("EVENT_BUFFER", 1024)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:         stringEnv("HTTP_ADDR", ":8080"),
		HoldTTL:          holdTTL,
		VenueID:          os.Getenv("VENUE_ID"),
		VenueRows:        rows,
		VenueSeatsPerRow: perRow,
		CRDBDSN:          os.Getenv("CRDB_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		EventSink:        stringEnv("EVENT_SINK", EventSinkLog),
		EventBuffer:      buffer,
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:         stringEnv("LOG_LEVEL", "info"),
	}

	switch cfg.EventSink {
	case EventSinkLog:
	case EventSinkRabbit:
		if cfg.RabbitURL == "" {
			return nil, errors.New("EVENT_SINK=rabbit requires RABBIT_URL")
		}
	case EventSinkOutbox:
		if cfg.CRDBDSN == "" {
			return nil, errors.New("EVENT_SINK=outbox requires CRDB_DSN")
		}
	default:
		return nil, errors.Newf("unknown EVENT_SINK %q", cfg.EventSink)
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}
