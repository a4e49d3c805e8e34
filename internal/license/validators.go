package license

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampFormats are the accepted textual expiry forms, tried in order.
// Forms without a zone are interpreted as UTC.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// IdentifierValidator requires a non-blank string and stores it trimmed.
func IdentifierValidator(field string, value Value) (Value, error) {
	s, ok := value.(String)
	if !ok {
		return nil, invalidValue(field, fmt.Sprintf("expected a string identifier, got %s", kindOf(value)))
	}
	trimmed := strings.TrimSpace(string(s))
	if trimmed == "" {
		return nil, invalidValue(field, "identifier must not be blank")
	}
	return String(trimmed), nil
}

// TimestampValidator accepts Time values and the supported textual forms,
// normalizing everything to a UTC Time value.
func TimestampValidator(field string, value Value) (Value, error) {
	switch tv := value.(type) {
	case Time:
		return NewTime(time.Time(tv)), nil
	case String:
		text := strings.TrimSpace(string(tv))
		for _, layout := range timestampFormats {
			if t, err := time.Parse(layout, text); err == nil {
				return NewTime(t), nil
			}
		}
		return nil, invalidValue(field, fmt.Sprintf("unrecognized timestamp %q", clip(text)))
	default:
		return nil, invalidValue(field, fmt.Sprintf("expected a timestamp, got %s", kindOf(value)))
	}
}

// TimestampSerializer renders Time values as RFC3339 UTC strings on the
// wire. Other values pass through untouched.
func TimestampSerializer(field string, value Value) (Value, error) {
	if t, ok := value.(Time); ok {
		return String(FormatTime(t)), nil
	}
	return value, nil
}

// SignatureValidator accepts null (unsigned document) or any string. The
// verifier, not the document, decides whether signature text is usable.
func SignatureValidator(field string, value Value) (Value, error) {
	switch value.(type) {
	case Null, String:
		return value, nil
	default:
		return nil, invalidValue(field, fmt.Sprintf("signature must be a string or null, got %s", kindOf(value)))
	}
}

// NonNegativeCount returns a validator for count-style fields such as seat
// or node limits: integral, zero or positive. Integral floats are folded to
// Int so counts stay exact.
func NonNegativeCount() ValidatorFunc {
	return func(field string, value Value) (Value, error) {
		switch tv := value.(type) {
		case Int:
			if tv < 0 {
				return nil, invalidValue(field, fmt.Sprintf("count must not be negative, got %d", int64(tv)))
			}
			return tv, nil
		case Float:
			f := float64(tv)
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, invalidValue(field, "count must be a whole number")
			}
			if f < 0 {
				return nil, invalidValue(field, fmt.Sprintf("count must not be negative, got %v", f))
			}
			if f >= math.MaxInt64 {
				return nil, invalidValue(field, "count is too large")
			}
			return Int(int64(f)), nil
		case Decimal:
			normalized, err := NormalizeNumber(string(tv))
			if err != nil {
				return nil, invalidValue(field, "count must be numeric")
			}
			i, err := strconv.ParseInt(normalized, 10, 64)
			if err != nil {
				return nil, invalidValue(field, fmt.Sprintf("count must be a whole number, got %s", normalized))
			}
			if i < 0 {
				return nil, invalidValue(field, fmt.Sprintf("count must not be negative, got %d", i))
			}
			return Int(i), nil
		default:
			return nil, invalidValue(field, fmt.Sprintf("count must be numeric, got %s", kindOf(value)))
		}
	}
}

// IntegerValidator returns a validator for plain integer fields. Integral
// floats and decimals are folded to Int.
func IntegerValidator() ValidatorFunc {
	return func(field string, value Value) (Value, error) {
		switch tv := value.(type) {
		case Int:
			return tv, nil
		case Float:
			f := float64(tv)
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, invalidValue(field, "expected a whole number")
			}
			if f >= math.MaxInt64 || f < math.MinInt64 {
				return nil, invalidValue(field, "integer is out of range")
			}
			return Int(int64(f)), nil
		case Decimal:
			normalized, err := NormalizeNumber(string(tv))
			if err != nil {
				return nil, invalidValue(field, "expected a number")
			}
			i, err := strconv.ParseInt(normalized, 10, 64)
			if err != nil {
				return nil, invalidValue(field, fmt.Sprintf("expected a whole number, got %s", normalized))
			}
			return Int(i), nil
		default:
			return nil, invalidValue(field, fmt.Sprintf("expected an integer, got %s", kindOf(value)))
		}
	}
}

// KindValidator restricts a field to the given kinds.
func KindValidator(kinds ...Kind) ValidatorFunc {
	allowed := make(map[Kind]bool, len(kinds))
	names := make([]string, len(kinds))
	for i, k := range kinds {
		allowed[k] = true
		names[i] = k.String()
	}
	expect := strings.Join(names, " or ")
	return func(field string, value Value) (Value, error) {
		if value == nil {
			value = Null{}
		}
		if !allowed[value.Kind()] {
			return nil, invalidValue(field, fmt.Sprintf("expected %s, got %s", expect, kindOf(value)))
		}
		return value, nil
	}
}

// GUIDValidator requires RFC 4122 UUID text and stores it lowercased.
func GUIDValidator(field string, value Value) (Value, error) {
	s, ok := value.(String)
	if !ok {
		return nil, invalidValue(field, fmt.Sprintf("expected a GUID string, got %s", kindOf(value)))
	}
	id, err := uuid.Parse(string(s))
	if err != nil {
		return nil, &FieldError{
			Field:   field,
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("malformed GUID %q", clip(string(s))),
			Cause:   err,
		}
	}
	return String(id.String()), nil
}

// PatternValidator compiles pattern and requires string values to match it.
func PatternValidator(pattern string) (ValidatorFunc, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile field pattern %q: %w", pattern, err)
	}
	return func(field string, value Value) (Value, error) {
		s, ok := value.(String)
		if !ok {
			return nil, invalidValue(field, fmt.Sprintf("expected a string matching %s, got %s", pattern, kindOf(value)))
		}
		if !re.MatchString(string(s)) {
			return nil, invalidValue(field, fmt.Sprintf("value %q does not match pattern %s", clip(string(s)), pattern))
		}
		return s, nil
	}, nil
}

// RangeValidator bounds numeric fields inclusively. A nil bound is open.
func RangeValidator(min, max *float64) ValidatorFunc {
	return func(field string, value Value) (Value, error) {
		f, ok := numericAsFloat(value)
		if !ok {
			return nil, invalidValue(field, fmt.Sprintf("expected a number, got %s", kindOf(value)))
		}
		if min != nil && f < *min {
			return nil, invalidValue(field, fmt.Sprintf("value %v is below the minimum %v", f, *min))
		}
		if max != nil && f > *max {
			return nil, invalidValue(field, fmt.Sprintf("value %v is above the maximum %v", f, *max))
		}
		return value, nil
	}
}

// ChainValidators runs validators left to right, feeding each the previous
// result.
func ChainValidators(validators ...ValidatorFunc) ValidatorFunc {
	return func(field string, value Value) (Value, error) {
		var err error
		for _, v := range validators {
			if v == nil {
				continue
			}
			value, err = v(field, value)
			if err != nil {
				return nil, err
			}
		}
		return value, nil
	}
}

func numericAsFloat(v Value) (float64, bool) {
	switch tv := v.(type) {
	case Int:
		return float64(tv), true
	case Float:
		return float64(tv), true
	case Decimal:
		f, err := strconv.ParseFloat(string(tv), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func kindOf(v Value) string {
	if v == nil {
		return KindNull.String()
	}
	return v.Kind().String()
}

func invalidValue(field, message string) error {
	return &FieldError{Field: field, Code: ErrCodeInvalidValue, Message: message}
}
