// Package backend opens the configured dictionary store.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dictx/internal/config"
	"github.com/JonMunkholm/dictx/internal/dictionary"
	"github.com/JonMunkholm/dictx/internal/store/filestore"
	"github.com/JonMunkholm/dictx/internal/store/pgstore"
	"github.com/JonMunkholm/dictx/internal/store/sqlitestore"
)

// Store is a dictionary store that holds resources until closed.
type Store interface {
	Load(ctx context.Context) (*dictionary.Snapshot, error)
	Save(ctx context.Context, snap *dictionary.Snapshot) error
	Close() error
}

// pgBackend closes the pool it opened.
type pgBackend struct {
	*pgstore.Store
	pool *pgxpool.Pool
}

func (b pgBackend) Close() error {
	b.pool.Close()
	return nil
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.MaxConns)
		poolConfig.MinConns = int32(cfg.MinConns)
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		s := pgstore.New(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to database", "driver", cfg.Driver, "database", poolConfig.ConnConfig.Database)
		return pgBackend{Store: s, pool: pool}, nil

	case config.DriverSQLite:
		db, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("opened database", "driver", cfg.Driver, "path", cfg.Path)
		return sqlitestore.New(db), nil

	case config.DriverFile:
		s := filestore.New(cfg.Path)
		logger.Info("using dictionary file", "path", s.Path())
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
