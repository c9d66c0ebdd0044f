package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/classweek-backend/internal/data/db"
	"github.com/yungbote/classweek-backend/internal/data/docstore"
	"github.com/yungbote/classweek-backend/internal/data/repos"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/mongodb"
)

// Store is the opened backing store and the repository set over it.
type Store struct {
	Repos repos.Set
	// DB is nil when the document store is in use.
	DB    *gorm.DB
	ping  func(context.Context) error
	close func(context.Context) error
}

// Ping reports whether the backing store answers.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func openStore(ctx context.Context, log *logger.Logger, cfg Config) (*Store, error) {
	log.Info("Wiring repos...", "store", cfg.Store)
	switch cfg.Store {
	case StoreMongo:
		m, err := mongodb.Connect(ctx, log, mongodb.ConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("init mongodb: %w", err)
		}
		if cfg.AutoMigrate {
			if err := docstore.EnsureIndexes(ctx, m.DB); err != nil {
				_ = m.Close(ctx)
				return nil, fmt.Errorf("mongodb indexes: %w", err)
			}
		}
		return &Store{Repos: docstore.NewSet(m.DB, log), ping: m.Ping, close: m.Close}, nil
	default:
		pg, err := db.NewPostgresService(log, db.ConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("init relational store: %w", err)
		}
		if cfg.AutoMigrate {
			if err := pg.AutoMigrateAll(); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("automigrate: %w", err)
			}
		}
		return &Store{
			Repos: repos.NewSet(pg.DB(), log),
			DB:    pg.DB(),
			ping:  pg.Ping,
			close: func(context.Context) error { return pg.Close() },
		}, nil
	}
}
