// File: internal/agent/mocks_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/handoff/internal/llmclient"
)

// MockLLMClient is a testify mock for llmclient.Client.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// fakePage records every interaction.
type fakePage struct {
	mu        sync.Mutex
	url       string
	text      string
	calls     []string
	clickErr  error
	navErr    error
	closed    int
	shotCalls int
}

func (p *fakePage) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.record("navigate %s", url)
	if p.navErr != nil {
		return p.navErr
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.record("click %s", selector)
	return p.clickErr
}

func (p *fakePage) Type(_ context.Context, selector, text string) error {
	p.record("type %s %s", selector, text)
	return nil
}

func (p *fakePage) Scroll(_ context.Context, pixels int) error {
	p.record("scroll %d", pixels)
	return nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shotCalls++
	return []byte("png"), nil
}

func (p *fakePage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == "" {
		return "about:blank", nil
	}
	return p.url, nil
}

func (p *fakePage) Text(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

var errNotFound = errors.New("could not find node with selector")
