package signing

import "errors"

// Sentinel errors for key handling and construction.
var (
	ErrNilKey        = errors.New("key must not be nil")
	ErrKeyTooSmall   = errors.New("RSA key is smaller than the minimum size")
	ErrNotRSAKey     = errors.New("key is not an RSA key")
	ErrNoPEMData     = errors.New("no PEM block found")
	ErrUnknownScheme = errors.New("unknown signature scheme")
)

// Stable verification result codes. A valid result carries no code.
const (
	CodeMissingSignature   = "MISSING_SIGNATURE"
	CodeMalformedSignature = "MALFORMED_SIGNATURE"
	CodeCanonicalization   = "CANONICALIZATION_FAILED"
	CodeSignatureMismatch  = "SIGNATURE_MISMATCH"
	CodeCryptoFailure      = "CRYPTO_FAILURE"
	CodeParseFailure       = "PARSE_FAILURE"
)

// ReasonSignatureMismatch is reported whenever signature bytes do not match
// the canonical content under the verifier's key. Tampered content and a
// wrong public key both produce this exact text.
const ReasonSignatureMismatch = "Signature verification failed"
