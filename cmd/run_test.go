// File: cmd/run_test.go
package cmd

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/handoff/internal/runner"
)

const pauseScript = `
steps:
  - name: login
    type: agent
    task: reach login for {prompt}
    wait_for_user_if:
      contains: ready_for_login
      message: finish signing in
  - name: mail
    type: agent
    task: read mail
`

func TestRunCmd_PauseThenResume(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "s.yaml", []byte(pauseScript), 0o644))
	agent := &cannedAgent{replies: []string{"ready_for_login"}}
	useAgent(t, agent)

	out, err := executeCommand(t, "\n", "run", "s.yaml", "--prompt", "contoso", "--session-id", "cli")
	require.NoError(t, err)

	assert.Contains(t, out, "⏸  finish signing in")
	assert.Contains(t, out, runner.CompletionMarker)
	assert.Contains(t, out, "Run log saved")
	require.Len(t, agent.tasks, 2)
	assert.Contains(t, agent.tasks[0], "reach login for contoso")
	assert.True(t, agent.closed, "resources are released when the command ends")

	saved, err := afero.ReadFile(fs, "logs/session_cli.log")
	require.NoError(t, err)
	assert.Contains(t, string(saved), runner.CompletionMarker)
}

func TestRunCmd_QuitWhileWaiting(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "s.yaml", []byte(pauseScript), 0o644))
	agent := &cannedAgent{replies: []string{"ready_for_login"}}
	useAgent(t, agent)

	out, err := executeCommand(t, "q\n", "run", "s.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "left unfinished")
	assert.Len(t, agent.tasks, 1)
	assert.True(t, agent.closed)
}

func TestRunCmd_EOFQuits(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "s.yaml", []byte(pauseScript), 0o644))
	agent := &cannedAgent{replies: []string{"ready_for_login"}}
	useAgent(t, agent)

	_, err := executeCommand(t, "", "run", "s.yaml")
	require.NoError(t, err)
	assert.Len(t, agent.tasks, 1)
}

func TestRunCmd_ResetThenRestart(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "s.yaml", []byte(pauseScript), 0o644))
	agent := &cannedAgent{replies: []string{"ready_for_login", "ready_for_login"}}
	useAgent(t, agent)

	// reset, start again, then quit at the second pause.
	out, err := executeCommand(t, "r\n\nq\n", "run", "s.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, runner.ResetBanner)
	assert.Contains(t, out, "[Enter] start")
	assert.Len(t, agent.tasks, 2)
	assert.Equal(t, agent.tasks[0], agent.tasks[1], "the run restarts from the first step")
}

func TestRunCmd_InvalidScriptAborts(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("steps: []\n"), 0o644))
	agent := &cannedAgent{}
	useAgent(t, agent)

	out, err := executeCommand(t, "", "run", "bad.yaml")
	require.Error(t, err)
	assert.Contains(t, out, "script error")
	assert.Empty(t, agent.tasks)
}

func TestRunCmd_Args(t *testing.T) {
	useMemFs(t)
	useAgent(t, &cannedAgent{})

	_, err := executeCommand(t, "", "run")
	assert.Error(t, err)

	_, err = executeCommand(t, "", "run", "--example", "extra.yaml")
	assert.Error(t, err)

	_, err = executeCommand(t, "", "run", "s.yaml", "--prompt", "a", "--prompt-name", "b")
	assert.Error(t, err)
}

func TestRunCmd_ExampleWithSavedPrompt(t *testing.T) {
	useMemFs(t)
	agent := &cannedAgent{}
	useAgent(t, agent)

	_, err := executeCommand(t, "", "prompt", "save", "inbox", "only unread")
	require.NoError(t, err)

	out, err := executeCommand(t, "", "run", "--example", "--prompt-name", "inbox")
	require.NoError(t, err)
	assert.Contains(t, out, runner.CompletionMarker)
	assert.NotEmpty(t, agent.tasks)
}
