// File: internal/safety/preamble.go
package safety

// Preamble is the fixed directive prepended to every task sent to the agent.
// It is not configurable.
const Preamble = `Safety policy:
- Never type passwords or MFA codes yourself.
- If a login step is required, ask the user to complete the login and stop the task at that step.
- Never perform purchases, deletions, transfers or other high-risk actions; ask the user for confirmation instead.
- Never enter sensitive personal or financial information.
- Never enter security tokens, credentials or API keys.
`

// Wrap prepends Preamble and a blank line to task. It is not idempotent, so a
// task must be wrapped exactly once per dispatch.
func Wrap(task string) string {
	return Preamble + "\n" + task
}
