// Package security protects signing keys at rest and screens the inputs
// the CLIs accept. Private keys are sealed into a versioned envelope with
// scrypt key derivation and AES-256-GCM; the envelope carries its own
// integrity digest so corruption is reported before decryption is tried.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/scrypt"
)

// Envelope format constants. The scrypt parameters follow the OWASP
// minimums for interactive key derivation.
const (
	envelopeVersion = 1
	kdfScrypt       = "scrypt"

	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	saltSize = 32

	integrityDomain = "GRIDSEAL-KEYSTORE-V1"
)

var (
	ErrEmptyKey        = errors.New("security: key material must not be empty")
	ErrEmptyPassphrase = errors.New("security: passphrase must not be empty")
	ErrTampered        = errors.New("security: envelope integrity check failed")
	ErrDecryptFailed   = errors.New("security: envelope decryption failed")
)

// EncryptedKey is the sealed form of a private key as written to disk. The
// key derivation parameters travel with the envelope so older files stay
// readable when the defaults move.
type EncryptedKey struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	ScryptN    int    `json:"scrypt_n"`
	ScryptR    int    `json:"scrypt_r"`
	ScryptP    int    `json:"scrypt_p"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	AuthTag    []byte `json:"auth_tag"`
	Integrity  []byte `json:"integrity"`
	SealedAt   int64  `json:"sealed_at"`
}

// SealPrivateKey encrypts PEM key material under passphrase and returns the
// envelope. Every call draws a fresh salt and nonce.
func SealPrivateKey(pemKey []byte, passphrase string) (*EncryptedKey, error) {
	if len(pemKey) == 0 {
		return nil, ErrEmptyKey
	}
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, pemKey, nil)
	tagStart := len(sealed) - gcm.Overhead()
	envelope := &EncryptedKey{
		Version:    envelopeVersion,
		KDF:        kdfScrypt,
		ScryptN:    scryptN,
		ScryptR:    scryptR,
		ScryptP:    scryptP,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: sealed[:tagStart],
		AuthTag:    sealed[tagStart:],
		SealedAt:   time.Now().Unix(),
	}
	envelope.Integrity = integrityDigest(envelope)
	return envelope, nil
}

// OpenPrivateKey decrypts an envelope back into PEM key material. The
// integrity digest is checked in constant time before any key derivation,
// so a corrupted envelope fails fast with ErrTampered.
func OpenPrivateKey(envelope *EncryptedKey, passphrase string) ([]byte, error) {
	if envelope == nil {
		return nil, errors.New("security: envelope must not be nil")
	}
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if envelope.Version != envelopeVersion {
		return nil, fmt.Errorf("security: unsupported envelope version %d", envelope.Version)
	}

	expected := integrityDigest(envelope)
	if subtle.ConstantTimeCompare(envelope.Integrity, expected) != 1 {
		return nil, ErrTampered
	}
	if envelope.KDF != kdfScrypt {
		return nil, fmt.Errorf("security: unsupported key derivation %q", envelope.KDF)
	}

	key, err := scrypt.Key([]byte(passphrase), envelope.Salt, envelope.ScryptN, envelope.ScryptR, envelope.ScryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(envelope.Ciphertext)+len(envelope.AuthTag))
	sealed = append(sealed, envelope.Ciphertext...)
	sealed = append(sealed, envelope.AuthTag...)

	pemKey, err := gcm.Open(nil, envelope.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return pemKey, nil
}

// EncodeEncryptedKey renders an envelope as indented JSON with a trailing
// newline, the form the keygen CLI writes to disk.
func EncodeEncryptedKey(envelope *EncryptedKey) ([]byte, error) {
	if envelope == nil {
		return nil, errors.New("security: envelope must not be nil")
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode encrypted key: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeEncryptedKey parses envelope JSON read from disk.
func DecodeEncryptedKey(data []byte) (*EncryptedKey, error) {
	var envelope EncryptedKey
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode encrypted key: %w", err)
	}
	return &envelope, nil
}

// IsEncryptedKey reports whether data looks like a sealed key envelope
// rather than plain PEM.
func IsEncryptedKey(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var envelope EncryptedKey
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return false
	}
	return envelope.Version > 0 && envelope.KDF != "" && len(envelope.Ciphertext) > 0
}

// integrityDigest hashes the envelope metadata and payload under a domain
// separator. The digest field itself is excluded.
func integrityDigest(envelope *EncryptedKey) []byte {
	h := sha256.New()
	h.Write([]byte(integrityDomain))
	fmt.Fprintf(h, ";%d;%s;%d;%d;%d;", envelope.Version, envelope.KDF, envelope.ScryptN, envelope.ScryptR, envelope.ScryptP)
	h.Write(envelope.Salt)
	h.Write(envelope.Nonce)
	h.Write(envelope.Ciphertext)
	h.Write(envelope.AuthTag)
	return h.Sum(nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
