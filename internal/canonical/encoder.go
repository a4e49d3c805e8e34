// Package canonical renders license documents into the deterministic byte
// form signatures are computed over. Two documents holding the same logical
// fields encode to identical bytes regardless of field insertion order or
// numeric representation, and the signature field never appears in the
// output, so signing and verification read the document without touching it.
package canonical

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gridseal/internal/license"
)

// Encode renders doc in canonical form: a compact JSON object with keys
// sorted by byte order at every nesting level, numbers in their narrowest
// exact text, times as RFC3339 UTC, and strings escaped only as far as JSON
// requires. The signature field is always omitted; exclude names further
// fields to omit, matched case-insensitively at every level.
func Encode(doc *license.Document, exclude ...string) ([]byte, error) {
	if doc == nil {
		return nil, &Error{Code: ErrCodeNilDocument, Message: "cannot encode a nil document"}
	}
	skip := newSkipSet(exclude)

	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	first := true
	for _, name := range doc.Names() {
		if skip.has(name) {
			continue
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false
		buf = license.AppendJSONString(buf, name)
		buf = append(buf, ':')
		var err error
		buf, err = appendValue(buf, doc.Get(name), skip)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// Digest is the SHA-256 of the canonical encoding. Signing, verification
// and the verification cache all hash through here so they agree on the
// exact bytes covered.
func Digest(doc *license.Document, exclude ...string) ([sha256.Size]byte, error) {
	encoded, err := Encode(doc, exclude...)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(encoded), nil
}

func appendValue(buf []byte, v license.Value, skip skipSet) ([]byte, error) {
	switch tv := v.(type) {
	case nil, license.Null:
		return append(buf, "null"...), nil
	case license.String:
		return license.AppendJSONString(buf, string(tv)), nil
	case license.Int:
		return strconv.AppendInt(buf, int64(tv), 10), nil
	case license.Decimal:
		text, err := license.NormalizeNumber(string(tv))
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeBadNumber,
				Message: fmt.Sprintf("decimal %q is not a canonical number", clip(string(tv))),
				Cause:   err,
			}
		}
		return append(buf, text...), nil
	case license.Float:
		text, err := license.FormatFloat(float64(tv))
		if err != nil {
			return nil, &Error{Code: ErrCodeBadNumber, Message: "non-finite float", Cause: err}
		}
		return append(buf, text...), nil
	case license.Bool:
		return strconv.AppendBool(buf, bool(tv)), nil
	case license.Time:
		return license.AppendJSONString(buf, license.FormatTime(tv)), nil
	case license.List:
		buf = append(buf, '[')
		for i, item := range tv {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendValue(buf, item, skip)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case license.Map:
		keys := make([]string, 0, len(tv))
		for key := range tv {
			if skip.has(key) {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, key := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = license.AppendJSONString(buf, key)
			buf = append(buf, ':')
			var err error
			buf, err = appendValue(buf, tv[key], skip)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, &Error{
			Code:    ErrCodeUnsupportedValue,
			Message: fmt.Sprintf("unsupported value type %T", v),
		}
	}
}

// skipSet holds lowercased field names excluded from the encoding.
type skipSet map[string]struct{}

func newSkipSet(fields []string) skipSet {
	set := make(skipSet, len(fields)+1)
	set[strings.ToLower(license.FieldSignature)] = struct{}{}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		set[strings.ToLower(field)] = struct{}{}
	}
	return set
}

func (s skipSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func clip(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
