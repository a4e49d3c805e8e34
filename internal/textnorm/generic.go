package textnorm

import "strings"

// Full-line comment markers recognized by the generic canonicalizer.
var genericCommentMarkers = []string{"#", "//", ";"}

// Generic returns the canonicalizer for ordinary configuration and data
// text. Line endings normalize to LF, trailing whitespace and comment-only
// lines disappear, internal whitespace runs collapse to one space, and
// leading indentation is kept exactly as written.
func Generic() Canonicalizer { return genericCanonicalizer{} }

type genericCanonicalizer struct{}

func (genericCanonicalizer) Name() string { return "generic" }

func (genericCanonicalizer) Canonicalize(data []byte) ([]byte, error) {
	if data == nil {
		return nil, ErrNilInput
	}

	var out []string
	for _, line := range splitLines(data) {
		indent := leadingWhitespace(line)
		rest := line[len(indent):]
		if isGenericComment(rest) {
			continue
		}
		collapsed := collapseWhitespace(rest)
		if collapsed == "" {
			continue
		}
		out = append(out, indent+collapsed)
	}
	return joinLines(out), nil
}

// isGenericComment reports whether the line's first non-whitespace text
// starts a comment. Markers later in the line do not count.
func isGenericComment(rest string) bool {
	for _, marker := range genericCommentMarkers {
		if strings.HasPrefix(rest, marker) {
			return true
		}
	}
	return false
}
