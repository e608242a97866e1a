// internal/runner/state.go
package runner

import "sync/atomic"

// Status is the controller state of a run.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusRunning       Status = "running"
	StatusPausedForUser Status = "paused_for_user"
	StatusCompleted     Status = "completed"
	StatusAborted       Status = "aborted"
)

// Log banners written at session creation and after a reset.
const (
	StartBanner = "🟢 Session started.\n"
	ResetBanner = "🧹 Session reset.\n"
)

// RunState is everything a run carries between controller calls. The caller
// owns it; the controller only mutates the value it is handed.
type RunState struct {
	SessionID   string `json:"session_id"`
	Cursor      int    `json:"cursor"`
	Log         string `json:"log"`
	Waiting     bool   `json:"waiting"`
	WaitMessage string `json:"wait_message,omitempty"`
	Status      Status `json:"status"`

	// Resources are live handles and are never persisted.
	Resources *Resources `json:"-"`

	interrupted atomic.Bool
}

// NewRunState returns an idle state for a new session.
func NewRunState(sessionID string) *RunState {
	return &RunState{
		SessionID: sessionID,
		Log:       StartBanner,
		Status:    StatusIdle,
	}
}

func (s *RunState) appendLog(text string) {
	s.Log += text
}

// Interrupt asks an in-flight drain to stop before its next step. The step
// already running is not cancelled. It is safe to call from any goroutine;
// Reset clears it.
func (s *RunState) Interrupt() {
	s.interrupted.Store(true)
}
