// internal/runner/template.go
package runner

import (
	"strings"
	"time"
)

// TemplateVars are the placeholders available to agent tasks.
type TemplateVars struct {
	Today  time.Time
	Prompt string
}

// Apply replaces {today} with the local date (YYYY-MM-DD) and {prompt} with
// the caller's text. Other braces are left untouched and replacements are not
// re-scanned.
func (v TemplateVars) Apply(task string) string {
	return strings.NewReplacer(
		"{today}", v.Today.Format(time.DateOnly),
		"{prompt}", v.Prompt,
	).Replace(task)
}
