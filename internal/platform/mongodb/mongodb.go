package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yungbote/classweek-backend/internal/platform/envutil"
	"github.com/yungbote/classweek-backend/internal/platform/httpx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	DialAttempts   int
}

func ConfigFromEnv() Config {
	return Config{
		URI:            envutil.String("MONGO_URI", ""),
		Database:       envutil.String("MONGO_DATABASE", "classweek"),
		ConnectTimeout: envutil.Seconds("MONGO_CONNECT_TIMEOUT_SECONDS", 10),
		DialAttempts:   envutil.Int("MONGO_DIAL_ATTEMPTS", 5),
	}
}

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials the deployment and waits for a primary, retrying with backoff.
func Connect(ctx context.Context, log *logger.Logger, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("missing MONGO_URI")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, fmt.Errorf("missing MONGO_DATABASE")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = 1
	}
	log = log.With("client", "MongoDB")

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	var pingErr error
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		pingErr = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if pingErr == nil {
			break
		}
		if attempt == cfg.DialAttempts {
			break
		}
		sleep := httpx.Backoff(500*time.Millisecond, 5*time.Second, attempt)
		log.Warn("Mongo ping failed; retrying", "attempt", attempt, "sleep", sleep.String(), "error", pingErr)
		if err := httpx.SleepContext(ctx, sleep); err != nil {
			pingErr = err
			break
		}
	}
	if pingErr != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", pingErr)
	}

	log.Info("Connected to MongoDB", "database", cfg.Database)
	return &Store{Client: client, DB: client.Database(cfg.Database)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}
