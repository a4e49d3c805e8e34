package license

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxPlainNumberLen caps how long a plain (exponent-free) number rendering
// may grow before output falls back to float notation. Keeps hostile
// exponents like 1e500000 from expanding into megabytes of zeros.
const maxPlainNumberLen = 80

// NormalizeNumber rewrites a decimal literal into its canonical textual
// form. Redundant zeros and exponents are folded away so that every
// spelling of the same number produces identical bytes: "1.50", "15e-1"
// and "0.150e1" all come back as "1.5". Values whose plain form would
// exceed maxPlainNumberLen are rendered through float64 instead; inputs
// that cannot be represented at all return an error.
func NormalizeNumber(text string) (string, error) {
	neg, digits, exp10, err := parseDecimal(text)
	if err != nil {
		return "", err
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", nil
	}
	for strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exp10++
	}

	var plain string
	if exp10 >= 0 {
		if exp10 <= maxPlainNumberLen {
			plain = digits + strings.Repeat("0", exp10)
		}
	} else if pointPos := len(digits) + exp10; pointPos > 0 {
		plain = digits[:pointPos] + "." + digits[pointPos:]
	} else if -pointPos <= maxPlainNumberLen {
		plain = "0." + strings.Repeat("0", -pointPos) + digits
	}

	if plain != "" && len(plain) <= maxPlainNumberLen {
		if neg {
			return "-" + plain, nil
		}
		return plain, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", &FieldError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("number %q is outside the representable range", clip(text)),
		}
	}
	return formatFallback(f), nil
}

// FormatFloat renders a float64 through the same canonical pathway as
// decimal text, so Float(1.5) and Decimal("1.50") encode identically.
func FormatFloat(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", &FieldError{
			Code:    ErrCodeInvalidValue,
			Message: "non-finite numbers cannot be encoded",
		}
	}
	return NormalizeNumber(strconv.FormatFloat(f, 'g', -1, 64))
}

// formatFallback is the terminal float rendering; it never re-enters
// NormalizeNumber.
func formatFallback(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'e', -1, 64)
}

// parseDecimal splits a numeric literal into sign, significant digits and a
// base-10 exponent such that value = digits * 10^exp10. The accepted syntax
// is a superset of JSON numbers (leading +, bare "." forms) so operator
// supplied schema defaults parse too.
func parseDecimal(text string) (neg bool, digits string, exp10 int, err error) {
	s := text
	if s == "" {
		return false, "", 0, numberSyntaxError(text)
	}
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intDigits := leadingDigits(s)
	s = s[len(intDigits):]

	var fracDigits string
	if strings.HasPrefix(s, ".") {
		s = s[1:]
		fracDigits = leadingDigits(s)
		s = s[len(fracDigits):]
	}
	if intDigits == "" && fracDigits == "" {
		return false, "", 0, numberSyntaxError(text)
	}

	var expVal int
	if s != "" {
		if s[0] != 'e' && s[0] != 'E' {
			return false, "", 0, numberSyntaxError(text)
		}
		parsed, perr := strconv.ParseInt(s[1:], 10, 32)
		if perr != nil {
			return false, "", 0, &FieldError{
				Code:    ErrCodeInvalidValue,
				Message: fmt.Sprintf("number %q has an unusable exponent", clip(text)),
				Cause:   perr,
			}
		}
		expVal = int(parsed)
	}

	return neg, intDigits + fracDigits, expVal - len(fracDigits), nil
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func numberSyntaxError(text string) error {
	return &FieldError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("malformed number %q", clip(text)),
	}
}

func clip(s string) string {
	const limit = 32
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

const hexDigits = "0123456789abcdef"

// AppendJSONString appends s as a JSON string literal. Only the characters
// JSON requires are escaped; UTF-8 passes through untouched and nothing is
// HTML-escaped, so the same text always yields the same bytes.
func AppendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"':
			dst = append(dst, '\\', '"')
		case b == '\\':
			dst = append(dst, '\\', '\\')
		case b >= 0x20:
			dst = append(dst, b)
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b == '\b':
			dst = append(dst, '\\', 'b')
		case b == '\f':
			dst = append(dst, '\\', 'f')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xf])
		}
	}
	return append(dst, '"')
}
