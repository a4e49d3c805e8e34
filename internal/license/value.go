package license

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the shape of a field value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindDecimal
	KindFloat
	KindBool
	KindList
	KindMap
	KindTime
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the closed set of shapes a document field can hold. Documents
// never store arbitrary interface values; everything that enters a document
// is converted to one of the concrete kinds below.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absent/empty value. Mandatory fields are seeded with Null
// until a caller assigns them.
type Null struct{}

// String holds UTF-8 text.
type String string

// Int holds a signed 64-bit integer.
type Int int64

// Decimal holds an exact decimal literal as text, for numbers that do not
// fit Int but should not lose precision through float64. The text is
// normalized on output; see NormalizeNumber.
type Decimal string

// Float holds a binary floating-point number.
type Float float64

// Bool holds a boolean.
type Bool bool

// List holds an ordered sequence of values.
type List []Value

// Map holds nested structured data. Unlike document fields, nested map keys
// are plain case-sensitive strings.
type Map map[string]Value

// Time holds an instant. Wire and canonical output always render it in UTC.
type Time time.Time

func (Null) Kind() Kind    { return KindNull }
func (String) Kind() Kind  { return KindString }
func (Int) Kind() Kind     { return KindInt }
func (Decimal) Kind() Kind { return KindDecimal }
func (Float) Kind() Kind   { return KindFloat }
func (Bool) Kind() Kind    { return KindBool }
func (List) Kind() Kind    { return KindList }
func (Map) Kind() Kind     { return KindMap }
func (Time) Kind() Kind    { return KindTime }

func (Null) isValue()    {}
func (String) isValue()  {}
func (Int) isValue()     {}
func (Decimal) isValue() {}
func (Float) isValue()   {}
func (Bool) isValue()    {}
func (List) isValue()    {}
func (Map) isValue()     {}
func (Time) isValue()    {}

// NewDecimal validates and normalizes a decimal literal.
func NewDecimal(text string) (Decimal, error) {
	normalized, err := NormalizeNumber(text)
	if err != nil {
		return "", err
	}
	return Decimal(normalized), nil
}

// NewTime converts a time to a Time value, normalized to UTC.
func NewTime(t time.Time) Time {
	return Time(t.UTC())
}

// Std returns the held instant as a time.Time in UTC.
func (t Time) Std() time.Time {
	return time.Time(t).UTC()
}

// FromGo converts a plain Go value into a Value. It accepts the kinds the
// wire decoder produces (string, bool, json.Number, nil, []any,
// map[string]any) plus native Go numerics and time.Time. Numbers narrow to
// the most precise representation: int64 when the value is integral and in
// range, exact decimal text otherwise, float64 only for inputs that are
// already binary floats.
func FromGo(v any) (Value, error) {
	switch tv := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return tv, nil
	case string:
		return String(tv), nil
	case bool:
		return Bool(tv), nil
	case int:
		return Int(tv), nil
	case int8:
		return Int(tv), nil
	case int16:
		return Int(tv), nil
	case int32:
		return Int(tv), nil
	case int64:
		return Int(tv), nil
	case uint:
		return fromUint(uint64(tv))
	case uint8:
		return Int(tv), nil
	case uint16:
		return Int(tv), nil
	case uint32:
		return Int(tv), nil
	case uint64:
		return fromUint(tv)
	case float32:
		return Float(tv), nil
	case float64:
		return Float(tv), nil
	case json.Number:
		return fromNumber(tv)
	case time.Time:
		return NewTime(tv), nil
	case []any:
		list := make(List, len(tv))
		for i, item := range tv {
			converted, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			list[i] = converted
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(tv))
		for key, item := range tv {
			converted, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			m[key] = converted
		}
		return m, nil
	default:
		return nil, &FieldError{
			Code:    ErrCodeUnsupportedType,
			Message: fmt.Sprintf("unsupported value type %T", v),
		}
	}
}

func fromUint(u uint64) (Value, error) {
	if u <= math.MaxInt64 {
		return Int(u), nil
	}
	return Decimal(strconv.FormatUint(u, 10)), nil
}

func fromNumber(n json.Number) (Value, error) {
	text := n.String()
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i), nil
	}
	if normalized, err := NormalizeNumber(text); err == nil {
		// Normalization can fold forms like 5e2 back into integer range.
		if i, err := strconv.ParseInt(normalized, 10, 64); err == nil {
			return Int(i), nil
		}
		return Decimal(normalized), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, &FieldError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("unparseable number %q", text),
			Cause:   err,
		}
	}
	return Float(f), nil
}

// ToGo converts a Value back to a plain Go value, the inverse of FromGo.
// Decimal comes back as json.Number so exactness survives.
func ToGo(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(tv)
	case Int:
		return int64(tv)
	case Decimal:
		return json.Number(tv)
	case Float:
		return float64(tv)
	case Bool:
		return bool(tv)
	case List:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = ToGo(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(tv))
		for key, item := range tv {
			out[key] = ToGo(item)
		}
		return out
	case Time:
		return tv.Std()
	default:
		return nil
	}
}

func copyValue(v Value) Value {
	switch tv := v.(type) {
	case List:
		out := make(List, len(tv))
		for i, item := range tv {
			out[i] = copyValue(item)
		}
		return out
	case Map:
		out := make(Map, len(tv))
		for key, item := range tv {
			out[key] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON implementations keep wire output deterministic: numbers are
// normalized, times render as RFC3339 UTC, and nothing is HTML-escaped by
// the types themselves.

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (v String) MarshalJSON() ([]byte, error) {
	return AppendJSONString(nil, string(v)), nil
}

func (v Int) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(v), 10), nil
}

func (v Decimal) MarshalJSON() ([]byte, error) {
	normalized, err := NormalizeNumber(string(v))
	if err != nil {
		return nil, fmt.Errorf("marshal decimal: %w", err)
	}
	return []byte(normalized), nil
}

func (v Float) MarshalJSON() ([]byte, error) {
	text, err := FormatFloat(float64(v))
	if err != nil {
		return nil, fmt.Errorf("marshal float: %w", err)
	}
	return []byte(text), nil
}

func (v Bool) MarshalJSON() ([]byte, error) {
	return strconv.AppendBool(nil, bool(v)), nil
}

func (v Time) MarshalJSON() ([]byte, error) {
	return AppendJSONString(nil, FormatTime(v)), nil
}

// FormatTime renders a Time value in its wire form: RFC3339 in UTC with
// trailing fractional zeros trimmed.
func FormatTime(v Time) string {
	return v.Std().Format(time.RFC3339Nano)
}
