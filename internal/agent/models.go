// internal/agent/models.go
package agent

import "time"

// ActionType is the vocabulary of browser actions the model may choose.
type ActionType string

const (
	ActionNavigate     ActionType = "NAVIGATE"       // Navigates to a URL.
	ActionClick        ActionType = "CLICK"          // Clicks on an element.
	ActionInputText    ActionType = "INPUT_TEXT"     // Types text into a field.
	ActionScroll       ActionType = "SCROLL"         // Scrolls the page.
	ActionWaitForAsync ActionType = "WAIT_FOR_ASYNC" // Pauses for a duration.
	ActionConclude     ActionType = "CONCLUDE"       // Ends the task with a final answer.
)

// Action is a single step decided by the model.
type Action struct {
	ID string `json:"id"`

	// Thought is the model's chain of reasoning for this action.
	Thought string `json:"thought,omitempty"`

	Type      ActionType     `json:"type"`
	Selector  string         `json:"selector,omitempty"`
	Value     string         `json:"value,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Rationale string         `json:"rationale"`
	Timestamp time.Time      `json:"timestamp"`
}

// ExecutionResult is what the executor reports back about an action.
type ExecutionResult struct {
	Status       string         `json:"status"`
	ErrorCode    ErrorCode      `json:"error_code,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}
