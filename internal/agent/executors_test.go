// File: internal/agent/executors_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/handoff/internal/browser"
)

func TestBrowserExecutor_Dispatch(t *testing.T) {
	exec := NewBrowserExecutor(zaptest.NewLogger(t))

	tests := []struct {
		name     string
		action   Action
		wantCall string
		wantCode ErrorCode
	}{
		{"navigate", Action{Type: ActionNavigate, Value: "https://office.com"}, "navigate https://office.com", ""},
		{"navigate without url", Action{Type: ActionNavigate}, "", ErrCodeInvalidParameters},
		{"click", Action{Type: ActionClick, Selector: "#go"}, "click #go", ""},
		{"input", Action{Type: ActionInputText, Selector: "#q", Value: "inbox"}, "type #q inbox", ""},
		{"input without selector", Action{Type: ActionInputText, Value: "x"}, "", ErrCodeInvalidParameters},
		{"scroll up", Action{Type: ActionScroll, Value: "UP"}, "scroll -600", ""},
		{"scroll pixels", Action{Type: ActionScroll, Value: "250"}, "scroll 250", ""},
		{"scroll garbage", Action{Type: ActionScroll, Value: "sideways"}, "", ErrCodeInvalidParameters},
		{"unknown", Action{Type: "SUBMIT_FORM"}, "", ErrCodeUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{}
			result := exec.Execute(context.Background(), page, tt.action)
			if tt.wantCode == "" {
				assert.Equal(t, "success", result.Status)
				assert.Equal(t, []string{tt.wantCall}, page.calls)
				return
			}
			assert.Equal(t, "failed", result.Status)
			assert.Equal(t, tt.wantCode, result.ErrorCode)
			assert.Empty(t, page.calls)
		})
	}
}

func TestBrowserExecutor_WaitRespectsContext(t *testing.T) {
	exec := NewBrowserExecutor(zaptest.NewLogger(t))

	short := exec.Execute(context.Background(), &fakePage{}, Action{Type: ActionWaitForAsync, Metadata: map[string]any{"duration_ms": float64(5)}})
	assert.Equal(t, "success", short.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	long := exec.Execute(ctx, &fakePage{}, Action{Type: ActionWaitForAsync, Metadata: map[string]any{"duration_ms": float64(60000)}})
	assert.Equal(t, ErrCodeTimeoutError, long.ErrorCode)
}

func TestParseBrowserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"blocked domain", fmt.Errorf("navigate: %w", browser.ErrDomainNotAllowed), ErrCodeDomainBlocked},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeoutError},
		{"net error", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), ErrCodeNavigationError},
		{"missing node", errNotFound, ErrCodeElementNotFound},
		{"other", errors.New("boom"), ErrCodeExecutionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, details := ParseBrowserError(tt.err, Action{Type: ActionClick, Selector: "#x"})
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.err.Error(), details["message"])
		})
	}
}
