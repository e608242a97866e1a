// internal/service/resources.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/agent"
	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/llmclient"
	"github.com/xkilldash9x/handoff/internal/runner"
)

// Factory builds a fresh agent and browser for every session that asks, so no
// two sessions share live resources.
type Factory struct {
	cfg      *config.Config
	launcher *browser.Launcher
	logger   *zap.Logger
}

var _ runner.ResourceFactory = (*Factory)(nil)

// NewFactory creates a Factory from the application configuration.
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		launcher: browser.NewLauncher(logger),
		logger:   logger,
	}
}

// NewAgent creates a vision agent backed by the configured model. When told
// to use its default browser the agent launches an unrestricted one with the
// configured wait bounds.
func (f *Factory) NewAgent(ctx context.Context) (runner.Agent, error) {
	model, err := llmclient.NewClient(ctx, f.cfg.Agent, f.logger)
	if err != nil {
		return nil, err
	}

	defaults := browser.OptionsFromConfig(f.cfg.Browser)
	defaults.Mode = config.BrowserModeExplicit
	defaults.AllowedDomains = nil
	open := func(ctx context.Context) (browser.Page, error) {
		return f.launcher.Launch(ctx, defaults)
	}

	return agent.New(model, open, agent.Config{
		MaxActions:  f.cfg.Agent.MaxActions,
		Temperature: f.cfg.Agent.Temperature,
	}, f.logger), nil
}

// AcquireBrowser resolves opts through the launcher.
func (f *Factory) AcquireBrowser(ctx context.Context, opts browser.Options) (browser.Handle, error) {
	return f.launcher.Acquire(ctx, opts)
}
