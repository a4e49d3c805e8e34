package license

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Value Conversion
// =============================================================================

func TestFromGoNarrowing(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "hello", String("hello")},
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"uint in range", uint64(12), Int(12)},
		{"uint beyond int64", uint64(math.MaxUint64), Decimal("18446744073709551615")},
		{"float64", 1.25, Float(1.25)},
		{"number integral", json.Number("999"), Int(999)},
		{"number integral exponent", json.Number("1e3"), Int(1000)},
		{"number fractional", json.Number("0.1"), Decimal("0.1")},
		{"number negative fractional", json.Number("-2.50"), Decimal("-2.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoStructured(t *testing.T) {
	t.Run("list and map recurse", func(t *testing.T) {
		got, err := FromGo(map[string]any{
			"features": []any{"contingency", "harmonics"},
			"limits":   map[string]any{"nodes": json.Number("5000")},
		})
		require.NoError(t, err)

		m, ok := got.(Map)
		require.True(t, ok)
		assert.Equal(t, List{String("contingency"), String("harmonics")}, m["features"])
		assert.Equal(t, Map{"nodes": Int(5000)}, m["limits"])
	})

	t.Run("time normalizes to UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		got, err := FromGo(time.Date(2027, 1, 1, 3, 0, 0, 0, loc))
		require.NoError(t, err)

		tv, ok := got.(Time)
		require.True(t, ok)
		assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), tv.Std())
	})

	t.Run("unsupported type is rejected", func(t *testing.T) {
		_, err := FromGo(struct{ X int }{1})
		require.Error(t, err)

		fe, ok := AsFieldError(err)
		require.True(t, ok)
		assert.Equal(t, ErrCodeUnsupportedType, fe.Code)
	})
}

func TestToGoRoundTrip(t *testing.T) {
	in := Map{
		"name":  String("grid"),
		"count": Int(3),
		"ratio": Decimal("0.5"),
		"flags": List{Bool(true), Null{}},
	}

	out := ToGo(in)
	back, err := FromGo(out)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

// =============================================================================
// Number Normalization
// =============================================================================

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"-0", "0"},
		{"0.0", "0"},
		{"50", "50"},
		{"1.50", "1.5"},
		{"15e-1", "1.5"},
		{"0.150e1", "1.5"},
		{"01.50", "1.5"},
		{"+3", "3"},
		{"1e3", "1000"},
		{"1.25e-2", "0.0125"},
		{"123.45000", "123.45"},
		{"0.1", "0.1"},
		{"-9223372036854775808", "-9223372036854775808"},
		{"1e21", "1000000000000000000000"},
		{"1.234e+05", "123400"},
		{"1e-07", "0.0000001"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeNumber(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNumberFallback(t *testing.T) {
	t.Run("huge exponent falls back to float form", func(t *testing.T) {
		got, err := NormalizeNumber("1e300")
		require.NoError(t, err)
		assert.Equal(t, "1e+300", got)
	})

	t.Run("tiny exponent falls back to float form", func(t *testing.T) {
		got, err := NormalizeNumber("1e-300")
		require.NoError(t, err)
		assert.Equal(t, "1e-300", got)
	})

	t.Run("out of range is an error", func(t *testing.T) {
		_, err := NormalizeNumber("1e999")
		require.Error(t, err)
	})

	t.Run("malformed literals are errors", func(t *testing.T) {
		for _, in := range []string{"", ".", "e5", "1.2.3", "abc", "--1", "1e"} {
			_, err := NormalizeNumber(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestFormatFloatMatchesDecimalPathway(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{123400, "123400"},
		{1e21, "1000000000000000000000"},
		{1e300, "1e+300"},
	}

	for _, tt := range tests {
		got, err := FormatFloat(tt.f)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "float %v", tt.f)
	}

	_, err := FormatFloat(math.Inf(1))
	assert.Error(t, err)
	_, err = FormatFloat(math.NaN())
	assert.Error(t, err)
}

// =============================================================================
// JSON Rendering
// =============================================================================

func TestValueMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", Null{}, "null"},
		{"string", String("a\"b"), `"a\"b"`},
		{"int", Int(-12), "-12"},
		{"decimal normalized", Decimal("2.50"), "2.5"},
		{"float", Float(0.5), "0.5"},
		{"bool", Bool(true), "true"},
		{"time", NewTime(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)), `"2027-01-01T00:00:00Z"`},
		{"list", List{Int(1), String("x")}, `[1,"x"]`},
		{"map sorts keys", Map{"b": Int(2), "a": Int(1)}, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	t.Run("strings never HTML-escape through their own marshaller", func(t *testing.T) {
		got, err := String("<&>").MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"<&>"`, string(got))
	})
}

func TestAppendJSONString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{"tab\there", `"tab\there"`},
		{"line\nbreak", `"line\nbreak"`},
		{"back\\slash", `"back\\slash"`},
		{"ctrl\x01byte", `"ctrlbyte"`},
		{"unicode é", `"unicode é"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, string(AppendJSONString(nil, tt.in)))
	}
}
