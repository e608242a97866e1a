// internal/agent/prompts.go
package agent

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a browser automation agent. You see the current page (URL, visible text and, when available, a screenshot) and must complete the user's task one action at a time.
Respond with a single JSON object for the next action and nothing else.

Available Action Types:
    - NAVIGATE: Go to a URL. (Params: value)
    - CLICK: Click an element. (Params: selector, a CSS selector)
    - INPUT_TEXT: Type into a field. (Params: selector, value)
    - SCROLL: Scroll the page. (Params: value="up", "down" or a pixel count)
    - WAIT_FOR_ASYNC: Pause while the page updates. (Params: metadata={"duration_ms": 1500})
    - CONCLUDE: Finish the task. Put the final answer the task asks for in value.

    Example: {"thought": "The sign in button is visible.", "type": "CLICK", "selector": "#signin", "rationale": "Reach the login form."}

    **Error Handling**:
    - ELEMENT_NOT_FOUND: the selector matched nothing. Try another selector or scroll.
    - DOMAIN_BLOCKED: the site is outside the allowed domains. Do not retry it.
    - TIMEOUT_ERROR: the page was slow. Consider WAIT_FOR_ASYNC before retrying.
    - INVALID_PARAMETERS: fix the missing or malformed parameters.

    If the task says to stop or to ask the user, CONCLUDE immediately with the requested answer.`

// buildUserPrompt renders the task, the current page and the action history.
func buildUserPrompt(task, location, pageText string, history []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\nCurrent URL: %s\n\nVisible text:\n%s\n", task, location, pageText)
	if len(history) > 0 {
		b.WriteString("\nPrevious actions:\n")
		for i, h := range history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
	}
	b.WriteString("\nDetermine the next Action. Respond with a single JSON object.")
	return b.String()
}

func describeOutcome(action Action, result ExecutionResult) string {
	target := action.Selector
	if target == "" {
		target = action.Value
	}
	if result.Status == "success" {
		return fmt.Sprintf("%s %s -> success", action.Type, target)
	}
	return fmt.Sprintf("%s %s -> failed (%s): %v", action.Type, target, result.ErrorCode, result.ErrorDetails["message"])
}
