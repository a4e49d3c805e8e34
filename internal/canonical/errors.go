package canonical

import "errors"

// Stable failure codes for canonical encoding.
const (
	ErrCodeNilDocument      = "NIL_DOCUMENT"
	ErrCodeBadNumber        = "BAD_NUMBER"
	ErrCodeUnsupportedValue = "UNSUPPORTED_VALUE"
)

// Error describes why a document could not be canonicalized.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
