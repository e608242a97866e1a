// File: internal/safety/safety_test.go
package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("prepends preamble and blank line", func(t *testing.T) {
		wrapped := Wrap("open outlook")
		assert.True(t, strings.HasPrefix(wrapped, Preamble))
		assert.Equal(t, Preamble+"\nopen outlook", wrapped)
		assert.True(t, strings.HasSuffix(wrapped, "\n\nopen outlook"), "preamble ends with a newline, so a blank line separates the task")
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, Wrap("x"), Wrap("x"))
	})

	t.Run("repeated wrapping duplicates the preamble", func(t *testing.T) {
		twice := Wrap(Wrap("x"))
		assert.Equal(t, 2, strings.Count(twice, "Safety policy:"))
	})

	t.Run("covers every directive", func(t *testing.T) {
		for _, fragment := range []string{"passwords", "MFA", "login", "purchases", "deletions", "transfers", "financial", "credentials"} {
			assert.Contains(t, Preamble, fragment)
		}
	})
}

func TestRedact(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"email", "contact jane.doe+x@example.co.uk now", "contact ***@***.*** now"},
		{"long phone", "call 010-1234-5678 today", "call ***-****-**** today"},
		{"short phone", "call 555-123-4567 today", "call ***-***-**** today"},
		{"token param", "https://x.test/cb?token=abc123&user=bob", "https://x.test/cb?token=***&user=bob"},
		{"secret after amp", "https://x.test/?a=1&secret=s3cr3t", "https://x.test/?a=1&secret=***"},
		{"several params", "?key=k1&pwd=p2&password=p3", "?key=***&pwd=***&password=***"},
		{"case sensitive names", "?TOKEN=abc", "?TOKEN=abc"},
		{"plain text untouched", "outlook_ready", "outlook_ready"},
		{"undashed digits untouched", "order 1234567890", "order 1234567890"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Redact(tc.input))
		})
	}
}

func TestRedact_Idempotent(t *testing.T) {
	inputs := []string{
		"mail a@b.io or call 010-1234-5678 / 555-123-4567, see https://h.test/?token=t&key=k",
		"nothing sensitive here",
		"",
		"***@***.*** ***-****-**** ?token=***",
	}
	for _, in := range inputs {
		once := Redact(in)
		assert.Equal(t, once, Redact(once), "redacting twice must equal redacting once for %q", in)
	}
}
