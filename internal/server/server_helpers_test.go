// internal/server/server_helpers_test.go
package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/prompts"
	"github.com/xkilldash9x/handoff/internal/runner"
	"github.com/xkilldash9x/handoff/internal/service"
	"github.com/xkilldash9x/handoff/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// replyAgent answers "ready_for_login" to tasks mentioning login and "done" otherwise.
type replyAgent struct{}

func (replyAgent) Execute(_ context.Context, task string, _ bool, _ browser.Handle) (string, error) {
	if strings.Contains(task, "login") {
		return "ready_for_login", nil
	}
	return "done", nil
}

type replyFactory struct{}

func (replyFactory) NewAgent(context.Context) (runner.Agent, error) { return replyAgent{}, nil }

func (replyFactory) AcquireBrowser(context.Context, browser.Options) (browser.Handle, error) {
	return browser.UseDefault(), nil
}

const loginScript = `
steps:
  - name: login
    type: agent
    task: open the login page
    wait_for_user_if:
      contains: ready_for_login
      message: sign in please
  - name: inbox
    type: agent
    task: read the inbox
`

type testEnv struct {
	server  *Server
	http    *httptest.Server
	manager *service.Manager
	prompts *prompts.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	manager := service.NewManager(replyFactory{}, browser.Options{}, store.NewMemoryStore(), service.NewMetrics(reg), logger)
	ps := prompts.NewStore(afero.NewMemMapFs(), "prompts")

	s := New(config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second}, manager, ps, reg, logger)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		manager.Shutdown()
	})
	return &testEnv{server: s, http: ts, manager: manager, prompts: ps}
}
