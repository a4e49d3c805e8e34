// Package textnorm canonicalizes text files before digesting, so that
// cosmetic differences in whitespace, comments and line endings do not
// change the hash a license binds to. Every canonicalizer is idempotent:
// running one over its own output reproduces the output.
package textnorm

import (
	"errors"
	"strings"
)

// ErrNilInput is returned when a canonicalizer receives nil content. Empty
// non-nil content is valid and canonicalizes to a single newline.
var ErrNilInput = errors.New("input must not be nil")

// Canonicalizer reduces file content to the canonical form digests are
// computed over.
type Canonicalizer interface {
	Name() string
	Canonicalize(data []byte) ([]byte, error)
}

func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func leadingWhitespace(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return line[:i]
		}
	}
	return line
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return []byte("\n")
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
