package license

import (
	"errors"
	"fmt"
	"strings"
)

// Stable application error codes for document failures. CLI tools and the
// manager report these verbatim so operators can branch on them.
const (
	ErrCodeMissingField    = "MISSING_FIELD"
	ErrCodeNullField       = "NULL_FIELD"
	ErrCodeInvalidValue    = "INVALID_VALUE"
	ErrCodeInvalidName     = "INVALID_FIELD_NAME"
	ErrCodeUnsupportedType = "UNSUPPORTED_TYPE"
	ErrCodeWireSyntax      = "WIRE_SYNTAX"
	ErrCodeWireRoot        = "WIRE_ROOT_NOT_OBJECT"
)

// FieldError describes a single failed field operation.
type FieldError struct {
	Field   string
	Code    string
	Message string
	Cause   error
}

func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}

// ValidationError accumulates every field issue found during an operation,
// so callers see the complete picture instead of the first failure.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "document validation failed"
	}
	msgs := make([]string, len(e.Issues))
	for i := range e.Issues {
		msgs[i] = e.Issues[i].Error()
	}
	return fmt.Sprintf("document validation failed: %s", strings.Join(msgs, "; "))
}

// Append records another issue.
func (e *ValidationError) Append(issue FieldError) {
	e.Issues = append(e.Issues, issue)
}

// Len reports how many issues were collected.
func (e *ValidationError) Len() int {
	return len(e.Issues)
}

// HasCode reports whether any collected issue carries the given code.
func (e *ValidationError) HasCode(code string) bool {
	for i := range e.Issues {
		if e.Issues[i].Code == code {
			return true
		}
	}
	return false
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsFieldError unwraps err into a *FieldError when possible.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
