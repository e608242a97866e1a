// File: internal/agent/agent_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/llmclient"
)

func newTestAgent(t *testing.T, model llmclient.Client, open PageOpener, maxActions int) *VisionAgent {
	t.Helper()
	return New(model, open, Config{MaxActions: maxActions, Temperature: 0.1}, zaptest.NewLogger(t))
}

func TestVisionAgent_ConcludesImmediately(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).
		Return(`{"type":"CONCLUDE","value":"already_signed_in"}`, nil).Once()
	page := &fakePage{text: "Welcome back"}

	out, err := newTestAgent(t, model, nil, 5).Execute(context.Background(), "check state", true, browser.Explicit(page))

	require.NoError(t, err)
	assert.Equal(t, "already_signed_in", out)
	assert.Empty(t, page.calls)
	model.AssertExpectations(t)
}

func TestVisionAgent_ActsThenConcludes(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return("```json\n{\"type\":\"navigate\",\"value\":\"https://office.com\"}\n```", nil).Once()
	model.On("Generate", mock.Anything, mock.Anything).Return(`{"type":"CLICK","selector":"#signin"}`, nil).Once()
	model.On("Generate", mock.Anything, mock.MatchedBy(func(req llmclient.Request) bool {
		return strings.Contains(req.UserPrompt, "Previous actions:") &&
			strings.Contains(req.UserPrompt, "NAVIGATE https://office.com -> success") &&
			strings.Contains(req.UserPrompt, "CLICK #signin -> success")
	})).Return(`Done. {"type":"CONCLUDE","value":"ready_for_login"}`, nil).Once()

	page := &fakePage{}
	out, err := newTestAgent(t, model, nil, 5).Execute(context.Background(), "reach login", true, browser.Explicit(page))

	require.NoError(t, err)
	assert.Equal(t, "ready_for_login", out)
	assert.Equal(t, []string{"navigate https://office.com", "click #signin"}, page.calls)
	assert.Equal(t, 3, page.shotCalls)
	model.AssertExpectations(t)
}

func TestVisionAgent_VisionFlagControlsScreenshots(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.MatchedBy(func(req llmclient.Request) bool {
		return len(req.Images) == 0 && req.JSON && req.SystemPrompt != ""
	})).Return(`{"type":"CONCLUDE","value":"ok"}`, nil).Once()
	page := &fakePage{}

	_, err := newTestAgent(t, model, nil, 5).Execute(context.Background(), "t", false, browser.Explicit(page))

	require.NoError(t, err)
	assert.Zero(t, page.shotCalls)
	model.AssertExpectations(t)
}

func TestVisionAgent_FailedActionIsFedBack(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return(`{"type":"CLICK","selector":"#missing"}`, nil).Once()
	model.On("Generate", mock.Anything, mock.MatchedBy(func(req llmclient.Request) bool {
		return strings.Contains(req.UserPrompt, "CLICK #missing -> failed (ELEMENT_NOT_FOUND)")
	})).Return(`{"type":"CONCLUDE","value":"gave up"}`, nil).Once()
	page := &fakePage{clickErr: errNotFound}

	out, err := newTestAgent(t, model, nil, 5).Execute(context.Background(), "t", true, browser.Explicit(page))

	require.NoError(t, err)
	assert.Equal(t, "gave up", out)
	model.AssertExpectations(t)
}

func TestVisionAgent_InvalidResponseIsRetried(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return("I think I should click", nil).Once()
	model.On("Generate", mock.Anything, mock.MatchedBy(func(req llmclient.Request) bool {
		return strings.Contains(req.UserPrompt, "not a valid action")
	})).Return(`{"type":"CONCLUDE","value":"ok"}`, nil).Once()

	out, err := newTestAgent(t, model, nil, 5).Execute(context.Background(), "t", true, browser.Explicit(&fakePage{}))

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestVisionAgent_BudgetExhausted(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return(`{"type":"SCROLL","value":"down"}`, nil)
	page := &fakePage{}

	_, err := newTestAgent(t, model, nil, 3).Execute(context.Background(), "t", true, browser.Explicit(page))

	assert.ErrorIs(t, err, ErrActionBudgetExhausted)
	assert.Equal(t, []string{"scroll 600", "scroll 600", "scroll 600"}, page.calls)
}

func TestVisionAgent_ModelErrorIsReturned(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	_, err := newTestAgent(t, model, nil, 3).Execute(context.Background(), "t", true, browser.Explicit(&fakePage{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm generation failed: connection refused")
}

func TestVisionAgent_DefaultHandleOpensOwnBrowser(t *testing.T) {
	model := new(MockLLMClient)
	model.On("Generate", mock.Anything, mock.Anything).Return(`{"type":"CONCLUDE","value":"ok"}`, nil)

	opened := 0
	own := &fakePage{}
	open := func(context.Context) (browser.Page, error) {
		opened++
		return own, nil
	}
	a := newTestAgent(t, model, open, 3)

	for i := 0; i < 2; i++ {
		_, err := a.Execute(context.Background(), "t", true, browser.UseDefault())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, opened, "the default browser is reused")
	assert.Equal(t, 2, own.shotCalls)

	require.NoError(t, a.Close())
	assert.Equal(t, 1, own.closed)
	require.NoError(t, a.Close())
	assert.Equal(t, 1, own.closed)
}

func TestVisionAgent_DefaultHandleWithoutOpener(t *testing.T) {
	_, err := newTestAgent(t, new(MockLLMClient), nil, 3).Execute(context.Background(), "t", true, browser.UseDefault())
	assert.ErrorContains(t, err, "no default browser configured")

	failing := func(context.Context) (browser.Page, error) { return nil, fmt.Errorf("chrome not found") }
	_, err = newTestAgent(t, new(MockLLMClient), failing, 3).Execute(context.Background(), "t", true, browser.UseDefault())
	assert.ErrorContains(t, err, "open default browser: chrome not found")
}
