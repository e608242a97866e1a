// File: internal/safety/redact.go
package safety

import "regexp"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order. Masked output never re-matches any pattern, which keeps
// Redact idempotent.
var redactions = []redaction{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "***@***.***"},
	{regexp.MustCompile(`\b\d{3}-\d{4}-\d{4}\b`), "***-****-****"},
	{regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`), "***-***-****"},
	// Separator and parameter name are kept, only the value is masked.
	{regexp.MustCompile(`([?&])(token|key|password|pwd|secret)=[^&\s]+`), "${1}${2}=***"},
}

// Redact masks email addresses, dashed phone numbers and credential-like URL
// query parameters. Output passes through it before entering any persisted log.
func Redact(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
