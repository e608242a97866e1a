// File: internal/script/script.go
package script

import "fmt"

// StepType discriminates the two kinds of step a script can contain.
type StepType string

const (
	// StepAgent hands a natural-language task to the automation agent.
	StepAgent StepType = "agent"
	// StepRequireUser suspends the run until a human resumes it.
	StepRequireUser StepType = "require_user"
)

// Known reports whether the step type is one the runner knows how to execute.
func (t StepType) Known() bool {
	return t == StepAgent || t == StepRequireUser
}

// WaitCondition pauses the run after an agent step when the agent's raw result
// contains Contains (case-insensitive).
type WaitCondition struct {
	Contains string `yaml:"contains" json:"contains"`
	Message  string `yaml:"message" json:"message"`
}

// Step is one unit of a script. Task and WaitForUserIf apply to agent steps,
// Message to require_user steps.
type Step struct {
	Name          string         `yaml:"name" json:"name"`
	Type          StepType       `yaml:"type" json:"type"`
	Task          string         `yaml:"task,omitempty" json:"task,omitempty"`
	WaitForUserIf *WaitCondition `yaml:"wait_for_user_if,omitempty" json:"wait_for_user_if,omitempty"`
	Message       string         `yaml:"message,omitempty" json:"message,omitempty"`
}

// Script is the validated, ordered step sequence of a document.
type Script struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// Len returns the number of steps.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Steps)
}

// DefaultStepName is the name given to a step that does not declare one.
// Positions are 1-based to match what an operator sees in the editor.
func DefaultStepName(position int) string {
	return fmt.Sprintf("step_%d", position)
}

// DefaultScript is the example shipped with the CLI. It walks a Microsoft 365
// login with a human handoff, then summarises today's inbox.
const DefaultScript = `# Example script
# type: agent | require_user
# An agent step runs its task. If the result contains wait_for_user_if.contains
# the run stops and asks a human to act, then continues on resume.

steps:
  - name: reach_login
    type: agent
    task: |
      1) Go to https://office.com.
      2) If a 'Sign in' button is visible, click it and continue to the Microsoft login screen.
      3) Finish by printing exactly one word describing the current state:
         - ready_for_login   (login form / Sign in screen reached)
         - already_signed_in (already logged in)
         - dashboard_loaded  (the Microsoft 365 dashboard is visible)
    wait_for_user_if:
      contains: ready_for_login
      message: "Complete the login (including MFA) in the browser window, then resume."

  - name: open_outlook
    type: agent
    task: |
      1) Open the app launcher (nine dots) and click 'Outlook'.
      2) Once Outlook is open, go to the Inbox.
      3) Finish by printing the single word 'outlook_ready'.

  - name: user_task
    type: agent
    task: |
      {prompt}

  - name: summarize_today
    type: agent
    task: |
      1) In the Inbox, list subject / sender / time of the mails received on '{today}' (visible range only).
      2) Do not open, delete, forward or reply to any mail (read-only).
      3) Output a Markdown list only, without extra commentary.
`
