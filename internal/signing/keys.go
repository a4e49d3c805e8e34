package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// MinKeyBits is the smallest RSA modulus accepted for signing and
// verification.
const MinKeyBits = 2048

const (
	pemTypePrivatePKCS8 = "PRIVATE KEY"
	pemTypePrivatePKCS1 = "RSA PRIVATE KEY"
	pemTypePublicPKIX   = "PUBLIC KEY"
	pemTypePublicPKCS1  = "RSA PUBLIC KEY"
)

// GenerateKeyPair creates a new RSA private key of the given modulus size.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d < %d bits", ErrKeyTooSmall, bits, MinKeyBits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return key, nil
}

// EncodePrivateKey renders key as a PKCS#8 PEM block.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivatePKCS8, Bytes: der}), nil
}

// DecodePrivateKey parses a PEM-encoded RSA private key. PKCS#8 is the
// native form; PKCS#1 blocks from older tooling are accepted too.
func DecodePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMData
	}
	switch block.Type {
	case pemTypePrivatePKCS8:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#8 private key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotRSAKey, parsed)
		}
		return key, nil
	case pemTypePrivatePKCS1:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 private key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// EncodePublicKey renders pub as a PKIX PEM block.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, ErrNilKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublicPKIX, Bytes: der}), nil
}

// DecodePublicKey parses a PEM-encoded RSA public key, accepting PKIX and
// PKCS#1 blocks.
func DecodePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMData
	}
	switch block.Type {
	case pemTypePublicPKIX:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX public key: %w", err)
		}
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotRSAKey, parsed)
		}
		return pub, nil
	case pemTypePublicPKCS1:
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// Fingerprint returns the lowercase hex SHA-256 of the PKIX encoding of
// pub. Reports, cache keys and logs identify keys by this value.
func Fingerprint(pub *rsa.PublicKey) string {
	if pub == nil {
		return ""
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

func checkKeySize(bits int) error {
	if bits < MinKeyBits {
		return fmt.Errorf("%w: %d < %d bits", ErrKeyTooSmall, bits, MinKeyBits)
	}
	return nil
}
