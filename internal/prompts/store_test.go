// internal/prompts/store_test.go
package prompts

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "daily_summary", SanitizeName("daily summary"))
	assert.Equal(t, "___etc_passwd", SanitizeName("../etc/passwd"))
	assert.Equal(t, "mail-2024_v1", SanitizeName("  mail-2024_v1 "))
	assert.Equal(t, "", SanitizeName("   "))
}

func TestStore_SaveLoadList(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "prompts")

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names, "missing directory lists nothing")

	saved, err := s.Save("weekly report", "summarize the week")
	require.NoError(t, err)
	assert.Equal(t, "weekly_report", saved)

	_, err = s.Save("alpha", "first")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "prompts/notes.md", []byte("ignored"), 0o644))
	require.NoError(t, fs.MkdirAll("prompts/sub.txt", 0o755))

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "weekly_report"}, names)

	text, err := s.Load("weekly report")
	require.NoError(t, err)
	assert.Equal(t, "summarize the week", text)

	_, err = s.Save("alpha", "overwritten")
	require.NoError(t, err)
	text, err = s.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, "overwritten", text)
}

func TestStore_Errors(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "prompts")

	_, err := s.Save("", "x")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ro := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "prompts")
	_, err = ro.Save("x", "y")
	assert.Error(t, err)
}
