// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/config"
)

// NewClient creates the Client for the configured provider, rate limited when
// cfg.RateLimit is set.
func NewClient(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) (Client, error) {
	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOllama:
		client, err = NewOllamaClient(cfg, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderOllama, config.ProviderGemini)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RateLimit > 0 {
		client = NewRateLimitedClient(client, cfg.RateLimit)
	}
	return client, nil
}
