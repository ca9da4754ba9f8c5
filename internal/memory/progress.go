// Package memory provides the append-only progress log used for session recovery.
package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the timestamp format of progress log lines.
const TimestampLayout = "2006-01-02 15:04:05"

// ProgressLog manages the progress log file. Each event is one line:
//
//	[<YYYY-MM-DD HH:MM:SS>] [<storyId>] [<agent>] <message>
//
// The story and agent fields are omitted when empty.
type ProgressLog struct {
	path string
	now  func() time.Time
}

// NewProgressLog creates a new ProgressLog for the given path.
func NewProgressLog(path string) *ProgressLog {
	return &ProgressLog{path: path, now: time.Now}
}

// SetClock overrides the time source used for line timestamps.
func (p *ProgressLog) SetClock(now func() time.Time) {
	p.now = now
}

// Log appends one event line to the progress log.
func (p *ProgressLog) Log(storyID, agent, message string) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating progress directory: %w", err)
	}

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening progress file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(FormatLine(p.now(), storyID, agent, message)); err != nil {
		return fmt.Errorf("appending to progress file: %w", err)
	}

	return nil
}

// FormatLine formats a single progress log line, including the trailing newline.
func FormatLine(timestamp time.Time, storyID, agent, message string) string {
	var sb strings.Builder

	_, _ = fmt.Fprintf(&sb, "[%s]", timestamp.Format(TimestampLayout))
	if storyID != "" {
		_, _ = fmt.Fprintf(&sb, " [%s]", storyID)
	}
	if agent != "" {
		_, _ = fmt.Fprintf(&sb, " [%s]", agent)
	}
	sb.WriteString(" ")
	sb.WriteString(strings.ReplaceAll(message, "\n", " "))
	sb.WriteString("\n")

	return sb.String()
}

// Recent returns the last n lines of the progress log.
// A missing file yields an empty slice.
func (p *ProgressLog) Recent(n int) ([]string, error) {
	lines, err := p.readLines()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Trim keeps only the most recent maxLines lines. It reports whether the
// file was rewritten; a trim is itself recorded as a log line.
func (p *ProgressLog) Trim(maxLines int) (bool, error) {
	if maxLines <= 0 {
		return false, errors.New("max lines must be positive")
	}

	lines, err := p.readLines()
	if err != nil {
		return false, err
	}
	if len(lines) <= maxLines {
		return false, nil
	}

	kept := strings.Join(lines[len(lines)-maxLines:], "\n") + "\n"

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(kept), 0644); err != nil {
		return false, fmt.Errorf("writing trimmed progress file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("replacing progress file: %w", err)
	}

	if err := p.Log("", "", fmt.Sprintf("Trimmed progress file to %d lines", maxLines)); err != nil {
		return true, err
	}
	return true, nil
}

func (p *ProgressLog) readLines() ([]string, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading progress file: %w", err)
	}

	text := strings.TrimRight(string(content), "\n")
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}

// Exists returns true if the progress file exists.
func (p *ProgressLog) Exists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// Path returns the file path of the progress log.
func (p *ProgressLog) Path() string {
	return p.path
}
