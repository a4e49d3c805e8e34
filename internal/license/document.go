package license

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mandatory field names. Lookups are case-insensitive, so these constants
// fix the casing used on the wire, nothing more.
const (
	FieldLicenseID = "LicenseId"
	FieldExpiry    = "ExpiryUtc"
	FieldSignature = "Signature"
)

// MandatoryFields returns the three fields every document carries.
func MandatoryFields() []string {
	return []string{FieldLicenseID, FieldExpiry, FieldSignature}
}

// Document is a license: a case-insensitive mapping from field names to
// dynamic values. The mandatory fields are seeded with Null at construction
// and therefore always present. Field names keep the casing of their first
// assignment; later sets through a different casing update the value only.
//
// Documents are not safe for concurrent mutation. The registry they carry
// is shared and safe to reuse across documents.
type Document struct {
	registry *Registry
	values   map[string]Value
	names    map[string]string
}

// NewDocument creates an empty document bound to reg. A nil registry falls
// back to the default rules.
func NewDocument(reg *Registry) *Document {
	if reg == nil {
		reg = NewRegistry()
	}
	d := &Document{
		registry: reg,
		values:   make(map[string]Value),
		names:    make(map[string]string),
	}
	for _, name := range MandatoryFields() {
		d.seed(name)
	}
	return d
}

func (d *Document) seed(name string) {
	key := strings.ToLower(name)
	d.values[key] = Null{}
	d.names[key] = name
}

// Registry returns the registry this document validates against.
func (d *Document) Registry() *Registry {
	return d.registry
}

// Set validates value against the registry rule for name (when one exists)
// and stores the result. On validation failure the document is unchanged.
func (d *Document) Set(name string, value Value) error {
	if strings.TrimSpace(name) == "" {
		return &FieldError{Code: ErrCodeInvalidName, Message: "field name must not be blank"}
	}
	if value == nil {
		value = Null{}
	}

	if rule, ok := d.registry.Lookup(name); ok && rule.Validate != nil {
		validated, err := rule.Validate(name, value)
		if err != nil {
			return decorateFieldError(err, name)
		}
		value = validated
	}

	key := strings.ToLower(name)
	if _, seen := d.names[key]; !seen {
		d.names[key] = name
	}
	d.values[key] = value
	return nil
}

// SetGo converts a plain Go value through FromGo and sets it.
func (d *Document) SetGo(name string, v any) error {
	value, err := FromGo(v)
	if err != nil {
		return decorateFieldError(err, name)
	}
	return d.Set(name, value)
}

// Get returns the value stored under name, matching case-insensitively.
// Absent fields read as Null rather than an error.
func (d *Document) Get(name string) Value {
	if v, ok := d.values[strings.ToLower(name)]; ok {
		return v
	}
	return Null{}
}

// Lookup is Get plus a presence report.
func (d *Document) Lookup(name string) (Value, bool) {
	v, ok := d.values[strings.ToLower(name)]
	if !ok {
		return Null{}, false
	}
	return v, true
}

// Names returns all field names in their stored casing, sorted.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.names))
	for _, name := range d.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of fields, seeded mandatory fields included.
func (d *Document) Len() int {
	return len(d.values)
}

// EnsureMandatory verifies the mandatory fields are present and non-null.
// All failures are collected into a single *ValidationError; a complete
// document returns nil.
func (d *Document) EnsureMandatory() error {
	var issues ValidationError
	for _, name := range MandatoryFields() {
		value, ok := d.Lookup(name)
		if !ok {
			issues.Append(FieldError{
				Field:   name,
				Code:    ErrCodeMissingField,
				Message: fmt.Sprintf("mandatory field %s is missing", name),
			})
			continue
		}
		if value.Kind() == KindNull {
			issues.Append(FieldError{
				Field:   name,
				Code:    ErrCodeNullField,
				Message: fmt.Sprintf("mandatory field %s is null", name),
			})
		}
	}
	if issues.Len() > 0 {
		return &issues
	}
	return nil
}

// Identifier returns the license identifier as text.
func (d *Document) Identifier() (string, error) {
	value := d.Get(FieldLicenseID)
	s, ok := value.(String)
	if !ok || strings.TrimSpace(string(s)) == "" {
		return "", &FieldError{
			Field:   FieldLicenseID,
			Code:    ErrCodeNullField,
			Message: "license identifier is not set",
		}
	}
	return string(s), nil
}

// Expiry returns the expiry instant in UTC.
func (d *Document) Expiry() (time.Time, error) {
	value := d.Get(FieldExpiry)
	t, ok := value.(Time)
	if !ok {
		return time.Time{}, &FieldError{
			Field:   FieldExpiry,
			Code:    ErrCodeNullField,
			Message: "expiry is not set",
		}
	}
	return t.Std(), nil
}

// SignatureText returns the stored signature when it is a non-empty string.
func (d *Document) SignatureText() (string, bool) {
	s, ok := d.Get(FieldSignature).(String)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// SetSignature stores base64 signature text.
func (d *Document) SetSignature(signature string) error {
	return d.Set(FieldSignature, String(signature))
}

// Clone returns a deep copy sharing the same registry.
func (d *Document) Clone() *Document {
	clone := &Document{
		registry: d.registry,
		values:   make(map[string]Value, len(d.values)),
		names:    make(map[string]string, len(d.names)),
	}
	for key, value := range d.values {
		clone.values[key] = copyValue(value)
	}
	for key, name := range d.names {
		clone.names[key] = name
	}
	return clone
}

// decorateFieldError fills in the field name on errors raised by hooks that
// did not know it.
func decorateFieldError(err error, field string) error {
	if fe, ok := AsFieldError(err); ok {
		if fe.Field == "" {
			fe.Field = field
		}
		return fe
	}
	return &FieldError{
		Field:   field,
		Code:    ErrCodeInvalidValue,
		Message: err.Error(),
		Cause:   err,
	}
}
