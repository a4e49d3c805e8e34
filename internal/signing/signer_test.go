package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridseal/internal/license"
)

// Key generation is slow enough that the whole package shares one pair.
var keyCache struct {
	once   sync.Once
	signer *rsa.PrivateKey
	other  *rsa.PrivateKey
	err    error
}

func testKeys(t *testing.T) (signer, other *rsa.PrivateKey) {
	t.Helper()
	keyCache.once.Do(func() {
		keyCache.signer, keyCache.err = rsa.GenerateKey(rand.Reader, 2048)
		if keyCache.err == nil {
			keyCache.other, keyCache.err = rsa.GenerateKey(rand.Reader, 2048)
		}
	})
	require.NoError(t, keyCache.err)
	return keyCache.signer, keyCache.other
}

func sampleDocument(t *testing.T) *license.Document {
	t.Helper()
	doc := license.NewDocument(license.NewRegistry())
	require.NoError(t, doc.Set(license.FieldLicenseID, license.String("ABC-123")))
	require.NoError(t, doc.Set("MaxUsers", license.Int(50)))
	require.NoError(t, doc.Set(license.FieldExpiry, license.String("2027-01-01T00:00:00Z")))
	return doc
}

// =============================================================================
// Signing
// =============================================================================

func TestSignAndVerify(t *testing.T) {
	key, otherKey := testKeys(t)

	t.Run("signed document verifies", func(t *testing.T) {
		signer, err := NewSigner(key)
		require.NoError(t, err)
		verifier, err := NewVerifier(&key.PublicKey)
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))

		text, ok := doc.SignatureText()
		require.True(t, ok)
		assert.NotEmpty(t, text)

		result := verifier.Verify(doc)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Code)
		assert.Empty(t, result.Reason)
	})

	t.Run("tampering invalidates the signature", func(t *testing.T) {
		signer, err := NewSigner(key)
		require.NoError(t, err)
		verifier, err := NewVerifier(&key.PublicKey)
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))
		require.NoError(t, doc.Set("MaxUsers", license.Int(999)))

		result := verifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeSignatureMismatch, result.Code)
		assert.Equal(t, "Signature verification failed", result.Reason)
	})

	t.Run("wrong key reports the identical reason", func(t *testing.T) {
		signer, err := NewSigner(key)
		require.NoError(t, err)
		wrongVerifier, err := NewVerifier(&otherKey.PublicKey)
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))

		result := wrongVerifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeSignatureMismatch, result.Code)
		assert.Equal(t, ReasonSignatureMismatch, result.Reason)
	})

	t.Run("PSS signatures differ between runs yet both verify", func(t *testing.T) {
		signer, err := NewSigner(key)
		require.NoError(t, err)
		verifier, err := NewVerifier(&key.PublicKey)
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))
		first, _ := doc.SignatureText()
		assert.True(t, verifier.Verify(doc).Valid)

		require.NoError(t, signer.Sign(doc))
		second, _ := doc.SignatureText()
		assert.True(t, verifier.Verify(doc).Valid)

		assert.NotEqual(t, first, second)
	})

	t.Run("PKCS1v15 signatures are deterministic", func(t *testing.T) {
		signer, err := NewSigner(key, OptSignScheme(SchemePKCS1v15))
		require.NoError(t, err)
		verifier, err := NewVerifier(&key.PublicKey, OptVerifyScheme(SchemePKCS1v15))
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))
		first, _ := doc.SignatureText()
		require.NoError(t, signer.Sign(doc))
		second, _ := doc.SignatureText()

		assert.Equal(t, first, second)
		assert.True(t, verifier.Verify(doc).Valid)
	})

	t.Run("scheme mismatch fails verification", func(t *testing.T) {
		signer, err := NewSigner(key, OptSignScheme(SchemePKCS1v15))
		require.NoError(t, err)
		pssVerifier, err := NewVerifier(&key.PublicKey)
		require.NoError(t, err)

		doc := sampleDocument(t)
		require.NoError(t, signer.Sign(doc))

		result := pssVerifier.Verify(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, CodeSignatureMismatch, result.Code)
	})
}

// =============================================================================
// Exclusions and Atomicity
// =============================================================================

func TestSignerExclusions(t *testing.T) {
	key, _ := testKeys(t)

	signer, err := NewSigner(key, OptSignExclude("Notes"))
	require.NoError(t, err)

	doc := sampleDocument(t)
	require.NoError(t, doc.Set("Notes", license.String("draft")))
	require.NoError(t, signer.Sign(doc))

	// An unsigned field may change freely.
	require.NoError(t, doc.Set("Notes", license.String("final")))

	matching, err := NewVerifier(&key.PublicKey, OptVerifyExclude("Notes"))
	require.NoError(t, err)
	assert.True(t, matching.Verify(doc).Valid)

	strict, err := NewVerifier(&key.PublicKey)
	require.NoError(t, err)
	result := strict.Verify(doc)
	assert.False(t, result.Valid)
	assert.Equal(t, CodeSignatureMismatch, result.Code)
}

func TestSignFailureKeepsPriorSignature(t *testing.T) {
	key, _ := testKeys(t)

	signer, err := NewSigner(key)
	require.NoError(t, err)

	doc := sampleDocument(t)
	require.NoError(t, doc.SetSignature("b2xk"))
	require.NoError(t, doc.Set("Bad", license.Decimal("zz")))

	require.Error(t, signer.Sign(doc))

	text, ok := doc.SignatureText()
	require.True(t, ok)
	assert.Equal(t, "b2xk", text)
}

// =============================================================================
// Construction
// =============================================================================

func TestSignerConstruction(t *testing.T) {
	key, _ := testKeys(t)

	t.Run("rejects nil key", func(t *testing.T) {
		_, err := NewSigner(nil)
		assert.ErrorIs(t, err, ErrNilKey)
	})

	t.Run("rejects weak keys", func(t *testing.T) {
		weak, err := rsa.GenerateKey(rand.Reader, 1024)
		require.NoError(t, err)

		_, err = NewSigner(weak)
		assert.ErrorIs(t, err, ErrKeyTooSmall)

		_, err = NewVerifier(&weak.PublicKey)
		assert.ErrorIs(t, err, ErrKeyTooSmall)
	})

	t.Run("rejects unknown schemes", func(t *testing.T) {
		_, err := NewSigner(key, OptSignScheme("RSA-MD5"))
		assert.ErrorIs(t, err, ErrUnknownScheme)

		_, err = NewVerifier(&key.PublicKey, OptVerifyScheme("RSA-MD5"))
		assert.ErrorIs(t, err, ErrUnknownScheme)
	})

	t.Run("fingerprints agree across both halves", func(t *testing.T) {
		signer, err := NewSigner(key)
		require.NoError(t, err)
		verifier, err := NewVerifier(&key.PublicKey)
		require.NoError(t, err)

		assert.Equal(t, signer.Fingerprint(), verifier.Fingerprint())
	})
}
