package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const maxLicenseIDLength = 64

// ValidateLicenseID checks the shape of a license identifier before it is
// placed in documents or used in file names. Identifiers are ASCII tokens:
// letters and digits, with '-', '_' and '.' allowed after the first
// character.
func ValidateLicenseID(id string) error {
	if id == "" {
		return errors.New("license id must not be empty")
	}
	if len(id) > maxLicenseIDLength {
		return fmt.Errorf("license id must be at most %d characters", maxLicenseIDLength)
	}
	for i, r := range id {
		if isAlphanumeric(r) {
			continue
		}
		if i > 0 && (r == '-' || r == '_' || r == '.') {
			continue
		}
		if i == 0 {
			return errors.New("license id must start with a letter or digit")
		}
		return fmt.Errorf("license id contains invalid character %q", r)
	}
	return nil
}

// EnsureWithinRoot joins a relative path onto root and verifies the result
// stays inside it. Absolute paths and traversal sequences that escape the
// root are rejected.
func EnsureWithinRoot(root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path must not be empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path %q must be relative to the root", path)
	}

	joined := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, joined)
	if err != nil {
		return "", fmt.Errorf("resolve %q under %s: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the root", path)
	}
	return joined, nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
