package verifier

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is prepended when output is cut.
const TruncationMarker = "... [output truncated]"

// Tail keeps the last maxBytes bytes of output, since errors typically appear
// at the end. The cut never splits a UTF-8 sequence. maxBytes <= 0 disables
// trimming.
func Tail(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}

	start := len(output) - maxBytes
	for start < len(output) && !utf8.RuneStart(output[start]) {
		start++
	}

	return TruncationMarker + "\n" + strings.TrimLeft(output[start:], "\n")
}
