package license

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MarshalWire renders the document as a JSON object for storage and
// transport. With validate set, the mandatory fields must be present and
// non-null first; the accumulated issues come back as a *ValidationError.
// Registered serializers run per field, so the expiry renders as an
// RFC3339 UTC string. Keys are emitted in sorted order with HTML escaping
// disabled.
func (d *Document) MarshalWire(validate bool) ([]byte, error) {
	if validate {
		if err := d.EnsureMandatory(); err != nil {
			return nil, err
		}
	}

	out := make(map[string]Value, d.Len())
	for _, name := range d.Names() {
		value := d.Get(name)
		if rule, ok := d.registry.Lookup(name); ok && rule.Serialize != nil {
			serialized, err := rule.Serialize(name, value)
			if err != nil {
				return nil, decorateFieldError(err, name)
			}
			value = serialized
		}
		out[name] = value
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("marshal wire document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseDocument builds a document from wire JSON. The mandatory fields are
// seeded before parsing, so they exist even when the input omits them.
// Individual field failures do not abort the parse: every valid field is
// stored and the issues come back together as a *ValidationError alongside
// the partially populated document. Only a syntax error or a non-object
// root returns a nil document.
func ParseDocument(reg *Registry, data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &FieldError{Code: ErrCodeWireSyntax, Message: "malformed wire JSON", Cause: err}
	}
	if dec.More() {
		return nil, &FieldError{Code: ErrCodeWireSyntax, Message: "trailing data after wire document"}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &FieldError{Code: ErrCodeWireRoot, Message: "wire document root must be a JSON object"}
	}

	doc := NewDocument(reg)
	var issues ValidationError

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, err := FromGo(obj[name])
		if err != nil {
			issues.Append(asIssue(err, name))
			continue
		}
		if err := doc.Set(name, value); err != nil {
			issues.Append(asIssue(err, name))
		}
	}

	if issues.Len() > 0 {
		return doc, &issues
	}
	return doc, nil
}

func asIssue(err error, field string) FieldError {
	decorated := decorateFieldError(err, field)
	if fe, ok := AsFieldError(decorated); ok {
		return *fe
	}
	return FieldError{Field: field, Code: ErrCodeInvalidValue, Message: err.Error(), Cause: err}
}
