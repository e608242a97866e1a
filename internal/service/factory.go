// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/prompts"
	"github.com/xkilldash9x/handoff/internal/runner"
)

// ComponentFactory builds the server's components from configuration.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

type concreteFactory struct {
	fs afero.Fs
}

// NewComponentFactory returns a factory that reads and writes through fsys.
func NewComponentFactory(fsys afero.Fs) ComponentFactory {
	return &concreteFactory{fs: fsys}
}

// Create initializes every component. A failure midway shuts down whatever
// was already created.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (components *Components, err error) {
	components = &Components{}
	defer func() {
		if err != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(err))
			components.Shutdown(logger)
			components = nil
		}
	}()

	// 1. Session store
	st, pool, err := InitializeStore(ctx, cfg.Database, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize session store: %w", err)
	}
	components.Store = st
	components.DBPool = pool

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	components.Registry = reg
	metrics := NewMetrics(reg)

	// 3. Prompts
	components.Prompts = prompts.NewStore(f.fs, cfg.Paths.PromptsDir)

	// 4. Session manager
	factory := NewFactory(cfg, logger)
	components.Manager = NewManager(
		factory,
		browser.OptionsFromConfig(cfg.Browser),
		st,
		metrics,
		logger,
		runner.WithVision(cfg.Agent.UseVision),
		runner.WithLogSink(runner.NewFileLogSink(f.fs, cfg.Paths.LogsDir)),
	)

	logger.Info("All components initialized successfully.")
	return components, nil
}
