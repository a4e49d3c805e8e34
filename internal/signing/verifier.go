package signing

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"gridseal/internal/canonical"
	"gridseal/internal/license"
)

// Result reports the outcome of a verification. Expected failures are part
// of the result, not errors: Valid is false, Code is stable for branching
// and Reason is readable text. A valid result carries neither.
type Result struct {
	Valid  bool   `json:"valid"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Verifier checks document signatures against an RSA public key.
type Verifier struct {
	key      *rsa.PublicKey
	scheme   Scheme
	exclude  []string
	registry *license.Registry
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// OptVerifyScheme selects the signature scheme. The default is RSASSA-PSS.
func OptVerifyScheme(scheme Scheme) VerifierOpt {
	return func(v *Verifier) { v.scheme = scheme }
}

// OptVerifyExclude names additional unsigned fields; it must mirror the
// exclusions the signer was configured with.
func OptVerifyExclude(fields ...string) VerifierOpt {
	return func(v *Verifier) { v.exclude = append(v.exclude, fields...) }
}

// OptVerifyRegistry sets the field registry VerifyJSON parses against.
func OptVerifyRegistry(reg *license.Registry) VerifierOpt {
	return func(v *Verifier) { v.registry = reg }
}

// NewVerifier validates the key and returns a configured Verifier.
func NewVerifier(key *rsa.PublicKey, opts ...VerifierOpt) (*Verifier, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	if err := checkKeySize(key.N.BitLen()); err != nil {
		return nil, err
	}
	v := &Verifier{key: key, scheme: SchemePSS}
	for _, opt := range opts {
		opt(v)
	}
	if !v.scheme.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, v.scheme)
	}
	if v.registry == nil {
		v.registry = license.NewRegistry()
	}
	return v, nil
}

// Scheme returns the configured signature scheme.
func (v *Verifier) Scheme() Scheme { return v.scheme }

// Fingerprint identifies the verification key.
func (v *Verifier) Fingerprint() string { return Fingerprint(v.key) }

// Verify checks doc's signature against the canonical encoding. The
// document is never mutated, and every expected failure mode comes back as
// a distinct Result rather than an error. Content tampering and a wrong
// public key are indistinguishable and share one reason text.
func (v *Verifier) Verify(doc *license.Document) Result {
	if doc == nil {
		return failure(CodeCanonicalization, "License document is nil")
	}
	text, ok := doc.SignatureText()
	if !ok {
		return failure(CodeMissingSignature, "Signature field is missing or empty")
	}
	signature, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return failure(CodeMalformedSignature, "Signature is not valid base64")
	}
	digest, err := canonical.Digest(doc, v.exclude...)
	if err != nil {
		return failure(CodeCanonicalization, fmt.Sprintf("License content could not be canonicalized: %v", err))
	}
	if err := v.verifyDigest(digest[:], signature); err != nil {
		if errors.Is(err, rsa.ErrVerification) {
			return failure(CodeSignatureMismatch, ReasonSignatureMismatch)
		}
		return failure(CodeCryptoFailure, fmt.Sprintf("Signature check failed unexpectedly: %v", err))
	}
	return Result{Valid: true}
}

// VerifyJSON parses raw as a license document and verifies it. Input that
// does not parse cleanly reports a parse failure rather than a signature
// failure.
func (v *Verifier) VerifyJSON(raw []byte) Result {
	doc, err := license.ParseDocument(v.registry, raw)
	if err != nil {
		return failure(CodeParseFailure, fmt.Sprintf("License JSON could not be parsed: %v", err))
	}
	return v.Verify(doc)
}

func (v *Verifier) verifyDigest(digest, signature []byte) error {
	switch v.scheme {
	case SchemePKCS1v15:
		return rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest, signature)
	default:
		return rsa.VerifyPSS(v.key, crypto.SHA256, digest, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	}
}

func failure(code, reason string) Result {
	return Result{Valid: false, Code: code, Reason: reason}
}
