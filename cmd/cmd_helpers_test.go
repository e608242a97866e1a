// File: cmd/cmd_helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/runner"
)

// quietConfig keeps command output free of log lines.
const quietConfig = `
logger:
  level: fatal
browser:
  mode: default
`

// useMemFs swaps the command filesystem for an in-memory one.
func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	orig := appFs
	appFs = fs
	t.Cleanup(func() { appFs = orig })
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs a fresh root command with args and stdin.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", writeConfig(t, quietConfig)}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// cannedAgent replies from a queue, then "done".
type cannedAgent struct {
	mu      sync.Mutex
	replies []string
	tasks   []string
	closed  bool
}

func (a *cannedAgent) Execute(_ context.Context, task string, _ bool, _ browser.Handle) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, task)
	if len(a.replies) == 0 {
		return "done", nil
	}
	r := a.replies[0]
	a.replies = a.replies[1:]
	return r, nil
}

func (a *cannedAgent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type cannedFactory struct{ agent *cannedAgent }

func (f cannedFactory) NewAgent(context.Context) (runner.Agent, error) { return f.agent, nil }

func (f cannedFactory) AcquireBrowser(context.Context, browser.Options) (browser.Handle, error) {
	return browser.UseDefault(), nil
}

// useAgent routes run through agent instead of a real model and browser.
func useAgent(t *testing.T, agent *cannedAgent) {
	t.Helper()
	orig := newResourceFactory
	newResourceFactory = func(*config.Config, *zap.Logger) runner.ResourceFactory {
		return cannedFactory{agent: agent}
	}
	t.Cleanup(func() { newResourceFactory = orig })
}
