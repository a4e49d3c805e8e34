package signing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridseal/internal/license"
)

// =============================================================================
// Failure Reasons
// =============================================================================

func TestVerifyFailureReasons(t *testing.T) {
	key, _ := testKeys(t)
	verifier, err := NewVerifier(&key.PublicKey)
	require.NoError(t, err)

	t.Run("missing signature", func(t *testing.T) {
		result := verifier.Verify(sampleDocument(t))
		assert.False(t, result.Valid)
		assert.Equal(t, CodeMissingSignature, result.Code)
	})

	t.Run("empty signature", func(t *testing.T) {
		doc := sampleDocument(t)
		require.NoError(t, doc.SetSignature(""))

		result := verifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeMissingSignature, result.Code)
	})

	t.Run("malformed base64", func(t *testing.T) {
		doc := sampleDocument(t)
		require.NoError(t, doc.SetSignature("@@not-base64@@"))

		result := verifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeMalformedSignature, result.Code)
	})

	t.Run("canonicalization failure", func(t *testing.T) {
		doc := sampleDocument(t)
		require.NoError(t, doc.SetSignature("Zm9v"))
		require.NoError(t, doc.Set("Bad", license.Decimal("zz")))

		result := verifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeCanonicalization, result.Code)
	})

	t.Run("nil document", func(t *testing.T) {
		result := verifier.Verify(nil)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeCanonicalization, result.Code)
	})

	t.Run("every failure mode has its own code", func(t *testing.T) {
		codes := []string{
			CodeMissingSignature,
			CodeMalformedSignature,
			CodeCanonicalization,
			CodeSignatureMismatch,
			CodeCryptoFailure,
			CodeParseFailure,
		}
		seen := make(map[string]bool, len(codes))
		for _, code := range codes {
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		}
	})
}

// =============================================================================
// Mutation Safety
// =============================================================================

func TestVerifyDoesNotMutate(t *testing.T) {
	key, otherKey := testKeys(t)

	signer, err := NewSigner(key)
	require.NoError(t, err)

	doc := sampleDocument(t)
	require.NoError(t, signer.Sign(doc))

	before, err := doc.MarshalWire(true)
	require.NoError(t, err)

	goodVerifier, err := NewVerifier(&key.PublicKey)
	require.NoError(t, err)
	wrongVerifier, err := NewVerifier(&otherKey.PublicKey)
	require.NoError(t, err)

	assert.True(t, goodVerifier.Verify(doc).Valid)
	assert.False(t, wrongVerifier.Verify(doc).Valid)

	after, err := doc.MarshalWire(true)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

// =============================================================================
// JSON Convenience Path
// =============================================================================

func TestVerifyJSON(t *testing.T) {
	key, _ := testKeys(t)

	signer, err := NewSigner(key)
	require.NoError(t, err)
	verifier, err := NewVerifier(&key.PublicKey)
	require.NoError(t, err)

	doc := sampleDocument(t)
	require.NoError(t, signer.Sign(doc))
	raw, err := doc.MarshalWire(true)
	require.NoError(t, err)

	t.Run("valid payload", func(t *testing.T) {
		result := verifier.VerifyJSON(raw)
		assert.True(t, result.Valid)
	})

	t.Run("textual tampering is a signature mismatch", func(t *testing.T) {
		tampered := strings.Replace(string(raw), `"MaxUsers":50`, `"MaxUsers":999`, 1)
		require.NotEqual(t, string(raw), tampered)

		result := verifier.VerifyJSON([]byte(tampered))
		assert.False(t, result.Valid)
		assert.Equal(t, CodeSignatureMismatch, result.Code)
		assert.Equal(t, "Signature verification failed", result.Reason)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		result := verifier.VerifyJSON([]byte(`{"LicenseId": `))
		assert.False(t, result.Valid)
		assert.Equal(t, CodeParseFailure, result.Code)
	})

	t.Run("non-object root", func(t *testing.T) {
		result := verifier.VerifyJSON([]byte(`[1,2,3]`))
		assert.False(t, result.Valid)
		assert.Equal(t, CodeParseFailure, result.Code)
	})

	t.Run("field validation failures are parse failures", func(t *testing.T) {
		result := verifier.VerifyJSON([]byte(`{"LicenseId": 5, "Signature": "Zm9v"}`))
		assert.False(t, result.Valid)
		assert.Equal(t, CodeParseFailure, result.Code)
	})
}
