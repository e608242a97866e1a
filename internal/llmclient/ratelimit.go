// internal/llmclient/ratelimit.go
package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient spaces out requests to the wrapped Client.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimitedClient allows perSecond requests per second with a burst of one.
func NewRateLimitedClient(next Client, perSecond float64) *RateLimitedClient {
	return &RateLimitedClient{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Generate waits for the limiter, then delegates.
func (c *RateLimitedClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for model rate limit: %w", err)
	}
	return c.next.Generate(ctx, req)
}
