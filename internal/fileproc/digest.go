package fileproc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gridseal/internal/license"
	"gridseal/internal/textnorm"
)

// AlgorithmSHA256 is the only digest algorithm produced today. Parsed
// digests keep whatever algorithm label they carried so future readers can
// reject them explicitly instead of mis-hashing.
const AlgorithmSHA256 = "sha256"

// DefaultDigestField is the license field model digests are stored under.
const DefaultDigestField = "ModelDigests"

// ErrMalformedDigest is returned when a digest string does not parse.
var ErrMalformedDigest = errors.New("malformed digest")

// Digest is one hashed file: the algorithm label and the lowercase hex sum.
type Digest struct {
	Algorithm string
	Hex       string
}

// String renders the wire form, "sha256:<hex>".
func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hex
}

// MarshalJSON encodes the digest as its wire string.
func (d Digest) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(d.Algorithm)+len(d.Hex)+3)
	return license.AppendJSONString(buf, d.String()), nil
}

// UnmarshalJSON decodes the "algorithm:hex" wire string.
func (d *Digest) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: expected a JSON string", ErrMalformedDigest)
	}
	parsed, err := ParseDigest(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest is the inverse of Digest.String. The hex part is validated
// and lowercased; the algorithm label is kept verbatim.
func ParseDigest(s string) (Digest, error) {
	algorithm, sum, ok := strings.Cut(s, ":")
	if !ok || algorithm == "" || sum == "" {
		return Digest{}, fmt.Errorf("%w: %q", ErrMalformedDigest, s)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return Digest{}, fmt.Errorf("%w: %q: %v", ErrMalformedDigest, s, err)
	}
	return Digest{Algorithm: algorithm, Hex: strings.ToLower(sum)}, nil
}

// DigestBytes canonicalizes content through the registry entry for path's
// extension and hashes the result. Extensions without a canonicalizer, or a
// nil registry, hash the raw bytes.
func DigestBytes(reg *textnorm.Registry, path string, content []byte) (Digest, error) {
	if reg != nil {
		if c, ok := reg.ForPath(path); ok {
			canonical, err := c.Canonicalize(content)
			if err != nil {
				return Digest{}, fmt.Errorf("canonicalize %s: %w", path, err)
			}
			content = canonical
		}
	}
	sum := sha256.Sum256(content)
	return Digest{Algorithm: AlgorithmSHA256, Hex: hex.EncodeToString(sum[:])}, nil
}

// DigestFile reads path and digests its content with DigestBytes.
func DigestFile(reg *textnorm.Registry, path string) (Digest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Digest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return DigestBytes(reg, path, content)
}

// AttachDigests stores the digests on doc as a map of relative path to
// digest string. A blank field name means DefaultDigestField.
func AttachDigests(doc *license.Document, field string, digests map[string]Digest) error {
	if field == "" {
		field = DefaultDigestField
	}
	m := make(license.Map, len(digests))
	for rel, digest := range digests {
		m[rel] = license.String(digest.String())
	}
	return doc.Set(field, m)
}
