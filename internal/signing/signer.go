// Package signing binds RSA signatures to license documents. Signatures
// cover the canonical encoding, so the signature field itself and any
// configured unsigned fields stay outside the signed content and documents
// are never mutated to compute it.
package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"gridseal/internal/canonical"
	"gridseal/internal/license"
)

// Signer signs license documents with an RSA private key.
type Signer struct {
	key     *rsa.PrivateKey
	scheme  Scheme
	exclude []string
}

// SignerOpt configures a Signer.
type SignerOpt func(*Signer)

// OptSignScheme selects the signature scheme. The default is RSASSA-PSS.
func OptSignScheme(scheme Scheme) SignerOpt {
	return func(s *Signer) { s.scheme = scheme }
}

// OptSignExclude names additional fields left out of the signed content,
// matched case-insensitively at every nesting level.
func OptSignExclude(fields ...string) SignerOpt {
	return func(s *Signer) { s.exclude = append(s.exclude, fields...) }
}

// NewSigner validates the key and returns a configured Signer.
func NewSigner(key *rsa.PrivateKey, opts ...SignerOpt) (*Signer, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	if err := checkKeySize(key.N.BitLen()); err != nil {
		return nil, err
	}
	s := &Signer{key: key, scheme: SchemePSS}
	for _, opt := range opts {
		opt(s)
	}
	if !s.scheme.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, s.scheme)
	}
	return s, nil
}

// Scheme returns the configured signature scheme.
func (s *Signer) Scheme() Scheme { return s.scheme }

// Fingerprint identifies the signing key by its public half.
func (s *Signer) Fingerprint() string {
	return Fingerprint(&s.key.PublicKey)
}

// Sign computes the signature over doc's canonical encoding and stores it
// base64-encoded in the signature field. The canonical encoding already
// leaves the signature field out, so the document is read, not rewritten,
// to compute it; on any failure the previous signature value is untouched.
func (s *Signer) Sign(doc *license.Document) error {
	digest, err := canonical.Digest(doc, s.exclude...)
	if err != nil {
		return fmt.Errorf("canonicalize for signing: %w", err)
	}
	signature, err := s.signDigest(digest[:])
	if err != nil {
		return fmt.Errorf("sign digest: %w", err)
	}
	return doc.SetSignature(base64.StdEncoding.EncodeToString(signature))
}

func (s *Signer) signDigest(digest []byte) ([]byte, error) {
	switch s.scheme {
	case SchemePKCS1v15:
		return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest)
	default:
		return rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	}
}
