// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/store"
)

// InitializeStore connects to PostgreSQL when a URL is configured, and falls back
// to an in-memory store otherwise. The returned pool is nil for the memory store.
func InitializeStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (store.SessionStore, *pgxpool.Pool, error) {
	if cfg.URL == "" {
		logger.Warn("No database configured; sessions are kept in memory and lost on exit.")
		return store.NewMemoryStore(), nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}
	logger.Info("PostgreSQL session store initialized.", zap.String("host", poolConfig.ConnConfig.Host))
	return st, pool, nil
}
