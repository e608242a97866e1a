// File: internal/service/components.go
package service

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/prompts"
	"github.com/xkilldash9x/handoff/internal/store"
)

// Components holds everything the HTTP server needs to host sessions.
type Components struct {
	Manager  *Manager
	Store    store.SessionStore
	Prompts  *prompts.Store
	Registry *prometheus.Registry
	DBPool   *pgxpool.Pool
}

// Shutdown releases components in dependency order: sessions first, then the pool.
func (c *Components) Shutdown(logger *zap.Logger) {
	logger.Debug("Beginning components shutdown sequence.")

	if c.Manager != nil {
		c.Manager.Shutdown()
		logger.Debug("Session manager shut down.")
	}

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Info("All components shut down.")
}
