// internal/runner/logfile.go
package runner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/afero"
)

// LogSink persists the log of a completed run and returns where it went.
type LogSink interface {
	Save(sessionID, log string) (string, error)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileLogSink writes run logs to <dir>/session_<id>.log.
type FileLogSink struct {
	fs    afero.Fs
	dir   string
	clock func() time.Time
}

// NewFileLogSink creates a sink rooted at dir on fs.
func NewFileLogSink(fs afero.Fs, dir string) *FileLogSink {
	return &FileLogSink{fs: fs, dir: dir, clock: time.Now}
}

// Save writes log. Sessions without an id are named after the current time.
func (s *FileLogSink) Save(sessionID, log string) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	id := unsafeFileChars.ReplaceAllString(sessionID, "_")
	if id == "" {
		id = s.clock().Format("20060102_150405")
	}
	path := filepath.Join(s.dir, "session_"+id+".log")
	if err := afero.WriteFile(s.fs, path, []byte(log), 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	return path, nil
}
