package textnorm

import "strings"

const titleSection = "TITLE"

// NetModel returns the canonicalizer for grid network model files. On top
// of the usual line-ending, whitespace and blank-line rules it understands
// the model format: the free-text [TITLE] section is removed entirely, "!"
// starts a comment anywhere in a line, section headers are uppercased, and
// indentation carries no meaning so every line is fully trimmed.
func NetModel() Canonicalizer { return netModelCanonicalizer{} }

type netModelCanonicalizer struct{}

func (netModelCanonicalizer) Name() string { return "netmodel" }

func (netModelCanonicalizer) Canonicalize(data []byte) ([]byte, error) {
	if data == nil {
		return nil, ErrNilInput
	}

	var out []string
	inTitle := false
	for _, line := range splitLines(data) {
		if idx := strings.IndexByte(line, '!'); idx >= 0 {
			line = line[:idx]
		}
		collapsed := collapseWhitespace(line)

		if name, ok := sectionName(collapsed); ok {
			inTitle = strings.EqualFold(name, titleSection)
			if inTitle {
				continue
			}
			out = append(out, strings.ToUpper(collapsed))
			continue
		}
		if inTitle || collapsed == "" {
			continue
		}
		out = append(out, collapsed)
	}
	return joinLines(out), nil
}

func sectionName(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") {
		return "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(line[1:end]), true
}
