// Package domain holds the data contracts shared by the GridSeal CLIs and
// the licensing manager. The types travel as JSON between tools, so field
// names and tags are part of the published surface.
package domain

import "time"

// VerificationReport is the full outcome of checking one license document.
// Signature validity and expiry are independent axes: a document can carry
// a perfectly valid signature and still be expired, and callers decide
// which axes they enforce.
type VerificationReport struct {
	Valid          bool       `json:"valid"`
	Code           string     `json:"code,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	LicenseID      string     `json:"license_id,omitempty"`
	KeyFingerprint string     `json:"key_fingerprint,omitempty"`
	Scheme         string     `json:"scheme,omitempty"`
	Expired        bool       `json:"expired"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CheckedAt      time.Time  `json:"checked_at"`
	FromCache      bool       `json:"from_cache,omitempty"`

	// Model digest re-verification, filled only when requested.
	DigestsChecked int           `json:"digests_checked,omitempty"`
	DigestIssues   []DigestIssue `json:"digest_issues,omitempty"`
}

// DigestIssue reports one model file whose content no longer matches the
// license, keyed by its slash-separated path relative to the model root.
type DigestIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IssueReceipt summarizes one freshly issued license.
type IssueReceipt struct {
	LicenseID      string     `json:"license_id"`
	Customer       string     `json:"customer,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	KeyFingerprint string     `json:"key_fingerprint"`
	Scheme         string     `json:"scheme"`
	IssuedAt       time.Time  `json:"issued_at"`
	DigestCount    int        `json:"digest_count,omitempty"`
	OutputPath     string     `json:"output_path,omitempty"`
}

// KeyDescriptor describes a generated RSA key pair on disk.
type KeyDescriptor struct {
	Fingerprint    string    `json:"fingerprint"`
	Bits           int       `json:"bits"`
	PrivateKeyPath string    `json:"private_key_path"`
	PublicKeyPath  string    `json:"public_key_path"`
	Encrypted      bool      `json:"encrypted"`
	CreatedAt      time.Time `json:"created_at"`
}
