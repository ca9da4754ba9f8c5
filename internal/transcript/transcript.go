// Package transcript extracts assistant text from agent session transcripts.
//
// A transcript is a stream of JSON objects, usually one per line. Only the
// tail of the file matters for marker detection, so readers never load more
// than a bounded window.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultTailBytes bounds how much of a transcript file is scanned.
const DefaultTailBytes = 256 * 1024

// ansiCSI matches common ANSI escape sequences (CSI).
var ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// Objects reads r and yields each complete top-level JSON object, even when
// objects are concatenated without newlines. Bytes outside an object, such as
// a line cut in half by a tail read, are skipped until the next '{'.
func Objects(r io.Reader, onObject func([]byte)) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var buf bytes.Buffer
	capturing := false
	depth := 0
	inStr := false
	esc := false

	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if !capturing {
			if b == '{' {
				capturing = true
				depth = 1
				inStr = false
				esc = false
				buf.Reset()
				buf.WriteByte(b)
			}
			continue
		}

		buf.WriteByte(b)

		if inStr {
			switch {
			case esc:
				esc = false
			case b == '\\':
				esc = true
			case b == '"':
				inStr = false
			}
			continue
		}

		switch b {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				raw := make([]byte, buf.Len())
				copy(raw, buf.Bytes())
				onObject(raw)
				capturing = false
				buf.Reset()
			}
		}
	}
}

// Entry is one transcript event reduced to its role and text.
type Entry struct {
	Role string
	Text string
}

// Parse reduces a raw transcript object to an Entry. Objects that are not
// valid JSON or carry no text yield ok=false.
func Parse(raw []byte) (Entry, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Entry{}, false
	}

	role := getString(m, "type")
	msg, _ := m["message"].(map[string]any)
	if msg != nil {
		if r := getString(msg, "role"); r != "" {
			role = r
		}
	}
	if r := getString(m, "role"); r != "" {
		role = r
	}

	text := ""
	if msg != nil {
		text = contentText(msg)
	}
	if text == "" {
		text = contentText(m)
	}
	if text == "" {
		text = getString(m, "text")
	}
	if text == "" {
		return Entry{}, false
	}
	return Entry{Role: role, Text: Sanitize(text)}, true
}

// AssistantText returns the concatenated assistant text found in r and the
// last assistant message on its own.
func AssistantText(r io.Reader) (all, last string, err error) {
	var parts []string
	err = Objects(r, func(raw []byte) {
		e, ok := Parse(raw)
		if !ok || e.Role != "assistant" {
			return
		}
		parts = append(parts, e.Text)
	})
	if len(parts) > 0 {
		last = parts[len(parts)-1]
	}
	return strings.Join(parts, "\n"), last, err
}

// ReadTail scans at most maxBytes from the end of the transcript at path and
// returns its assistant text. A missing file yields empty strings.
func ReadTail(path string, maxBytes int64) (all, last string, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultTailBytes
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("failed to stat transcript: %w", err)
	}
	if offset := info.Size() - maxBytes; offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return "", "", fmt.Errorf("failed to seek transcript: %w", err)
		}
		// Drop the partial line the window starts in.
		br := bufio.NewReader(f)
		if _, err := br.ReadString('\n'); err != nil {
			return "", "", nil
		}
		return AssistantText(br)
	}
	return AssistantText(f)
}

// Sanitize removes ANSI CSI sequences and control characters except \n, \t and \r.
func Sanitize(s string) string {
	s = ansiCSI.ReplaceAllString(s, "")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n', r == '\t', r == '\r':
			b.WriteRune(r)
		case r >= 0x20:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func contentText(m map[string]any) string {
	switch c := m["content"].(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, it := range c {
			blk, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t := getString(blk, "type"); t != "" && t != "text" {
				continue
			}
			if s := getString(blk, "text"); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
