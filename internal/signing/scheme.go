package signing

import (
	"fmt"
	"strings"
)

// Scheme selects the RSA signature algorithm. The digest is always SHA-256.
type Scheme string

const (
	// SchemePSS is RSASSA-PSS, the default. Signing is probabilistic: two
	// signatures over the same content differ yet both verify.
	SchemePSS Scheme = "RSASSA-PSS"

	// SchemePKCS1v15 is RSASSA-PKCS1-V1_5, kept for licenses issued by
	// older tooling. Signing is deterministic.
	SchemePKCS1v15 Scheme = "RSASSA-PKCS1-V1_5"
)

func (s Scheme) String() string { return string(s) }

// Valid reports whether s is a known scheme.
func (s Scheme) Valid() bool {
	return s == SchemePSS || s == SchemePKCS1v15
}

// ParseScheme resolves a scheme name case-insensitively. The short aliases
// "pss" and "pkcs1v15" are accepted alongside the canonical names.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RSASSA-PSS", "PSS":
		return SchemePSS, nil
	case "RSASSA-PKCS1-V1_5", "PKCS1V15", "PKCS1-V1_5":
		return SchemePKCS1v15, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}
