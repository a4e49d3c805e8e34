// Package licensing orchestrates license issue and verification: it wires
// the field registry, schema rules, signing keys, verification cache and
// observability into one Manager the CLIs share.
package licensing

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gridseal/internal/canonical"
	"gridseal/internal/fileproc"
	"gridseal/internal/license"
	"gridseal/internal/schema"
	"gridseal/internal/signing"
	"gridseal/internal/textnorm"
	"gridseal/pkg/contracts/domain"
)

// Verification cache defaults, used when Config leaves them zero.
const (
	DefaultCacheTTL  = 15 * time.Minute
	DefaultCacheSize = 256
)

// Config carries the material a Manager needs. PrivateKey may be nil for
// verify-only managers; PublicKey may be nil when PrivateKey is set. A
// negative CacheSize disables verdict caching.
type Config struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	Scheme     signing.Scheme
	Schema     *schema.Schema
	CacheTTL   time.Duration
	CacheSize  int
}

// Option adjusts a Manager beyond its Config.
type Option func(*Manager)

// WithLogger routes the manager's structured logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches OpenTelemetry instruments.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithCache substitutes a shared verification cache. The manager stops
// whichever cache it holds when Close is called.
func WithCache(cache *VerificationCache) Option {
	return func(m *Manager) { m.cache = cache }
}

// Manager bundles everything one license authority needs: the compiled
// field registry, optional schema, signer and verifier for one key pair and
// scheme, the verification cache, metrics and logging.
type Manager struct {
	registry    *license.Registry
	schema      *schema.Schema
	processors  map[string]string
	exclude     []string
	signer      *signing.Signer
	verifier    *signing.Verifier
	scheme      signing.Scheme
	fingerprint string
	cache       *VerificationCache
	metrics     *Metrics
	logger      *slog.Logger
}

// NewManager builds a Manager from cfg. The schema, when present, is
// compiled onto a fresh registry and decides the field processors and the
// fields left out of the signing surface.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = signing.SchemePSS
	}
	if !scheme.Valid() {
		return nil, fmt.Errorf("%w: %q", signing.ErrUnknownScheme, string(scheme))
	}

	public := cfg.PublicKey
	if public == nil && cfg.PrivateKey != nil {
		public = &cfg.PrivateKey.PublicKey
	}
	if public == nil {
		return nil, ErrNoPublicKey
	}

	m := &Manager{
		registry: license.NewRegistry(),
		schema:   cfg.Schema,
		scheme:   scheme,
	}
	if cfg.Schema != nil {
		if err := cfg.Schema.Apply(m.registry); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
		m.processors = cfg.Schema.Processors()
		m.exclude = cfg.Schema.Unsigned()
	}

	var err error
	if cfg.PrivateKey != nil {
		m.signer, err = signing.NewSigner(cfg.PrivateKey,
			signing.OptSignScheme(scheme),
			signing.OptSignExclude(m.exclude...))
		if err != nil {
			return nil, fmt.Errorf("construct signer: %w", err)
		}
	}
	m.verifier, err = signing.NewVerifier(public,
		signing.OptVerifyScheme(scheme),
		signing.OptVerifyExclude(m.exclude...),
		signing.OptVerifyRegistry(m.registry))
	if err != nil {
		return nil, fmt.Errorf("construct verifier: %w", err)
	}
	m.fingerprint = m.verifier.Fingerprint()

	for _, opt := range opts {
		opt(m)
	}

	if m.cache == nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		size := cfg.CacheSize
		if size == 0 {
			size = DefaultCacheSize
		}
		m.cache = NewVerificationCache(ttl, size)
	}

	return m, nil
}

// Registry exposes the compiled field registry, for parsing documents with
// the same rules the manager applies.
func (m *Manager) Registry() *license.Registry { return m.registry }

// Scheme returns the signature scheme in force.
func (m *Manager) Scheme() signing.Scheme { return m.scheme }

// Fingerprint identifies the verification key.
func (m *Manager) Fingerprint() string { return m.fingerprint }

// CanSign reports whether the manager holds a private key.
func (m *Manager) CanSign() bool { return m.signer != nil }

// CacheStats snapshots the verification cache counters.
func (m *Manager) CacheStats() map[string]interface{} { return m.cache.GetStats() }

// Close stops the background cache janitor.
func (m *Manager) Close() {
	if m.cache != nil {
		m.cache.Stop()
	}
}

// IssueRequest carries the inputs for one new license document.
type IssueRequest struct {
	// Fields are the caller-supplied values, converted through the wire
	// conversion rules.
	Fields map[string]any
	// Digests, when present, are attached under DigestField before signing.
	Digests     map[string]fileproc.Digest
	DigestField string
}

// Issue builds, processes, validates and signs one license document and
// returns it with its wire JSON.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*license.Document, []byte, error) {
	var (
		doc  *license.Document
		wire []byte
	)
	start := time.Now()
	err := m.TraceSign(ctx, requestIdentifier(req), func() error {
		var issueErr error
		doc, wire, issueErr = m.issue(req)
		return issueErr
	})
	m.logOperation(ctx, "issue", start, err)
	if err != nil {
		return nil, nil, err
	}
	return doc, wire, nil
}

func (m *Manager) issue(req IssueRequest) (*license.Document, []byte, error) {
	if m.signer == nil {
		return nil, nil, ErrNoPrivateKey
	}

	doc := license.NewDocument(m.registry)
	for _, name := range sortedFieldNames(req.Fields) {
		if err := doc.SetGo(name, req.Fields[name]); err != nil {
			return nil, nil, err
		}
	}
	if len(m.processors) > 0 {
		if err := fileproc.RunProcessors(doc, m.processors); err != nil {
			return nil, nil, err
		}
	}
	if len(req.Digests) > 0 {
		if err := fileproc.AttachDigests(doc, req.DigestField, req.Digests); err != nil {
			return nil, nil, err
		}
	}
	if m.schema != nil {
		if err := m.schema.Validate(doc); err != nil {
			return nil, nil, err
		}
	}
	if err := m.signer.Sign(doc); err != nil {
		return nil, nil, err
	}
	wire, err := doc.MarshalWire(true)
	if err != nil {
		return nil, nil, err
	}
	return doc, wire, nil
}

// Verify checks doc's signature, with the verification cache in front, and
// evaluates expiry fresh. The two verdicts land in one report.
func (m *Manager) Verify(ctx context.Context, doc *license.Document) domain.VerificationReport {
	var report domain.VerificationReport
	start := time.Now()
	m.TraceVerify(ctx, func() bool {
		report = m.verifyDocument(ctx, doc)
		return report.Valid
	})
	m.logVerification(ctx, start, report)
	return report
}

// VerifyJSON parses raw with the manager's registry and verifies the
// result. Any parse failure, syntactic or per-field, reports PARSE_FAILURE.
func (m *Manager) VerifyJSON(ctx context.Context, raw []byte) domain.VerificationReport {
	var report domain.VerificationReport
	start := time.Now()
	m.TraceVerify(ctx, func() bool {
		doc, err := license.ParseDocument(m.registry, raw)
		if err != nil {
			report = domain.VerificationReport{
				Code:           signing.CodeParseFailure,
				Reason:         fmt.Sprintf("License JSON could not be parsed: %v", err),
				KeyFingerprint: m.fingerprint,
				Scheme:         m.scheme.String(),
				CheckedAt:      time.Now().UTC(),
			}
			return false
		}
		report = m.verifyDocument(ctx, doc)
		return report.Valid
	})
	m.logVerification(ctx, start, report)
	return report
}

func (m *Manager) verifyDocument(ctx context.Context, doc *license.Document) domain.VerificationReport {
	report := domain.VerificationReport{
		KeyFingerprint: m.fingerprint,
		Scheme:         m.scheme.String(),
		CheckedAt:      time.Now().UTC(),
	}

	var key string
	if doc != nil {
		if id, err := doc.Identifier(); err == nil {
			report.LicenseID = id
		}
		if digest, err := canonical.Digest(doc, m.exclude...); err == nil {
			signature, _ := doc.SignatureText()
			key = verificationCacheKey(digest, signature, m.fingerprint, m.scheme)
			if cached, ok := m.cache.Get(key); ok {
				m.recordCacheMetrics(ctx, true)
				report.Valid = cached.Valid
				report.Code = cached.Code
				report.Reason = cached.Reason
				report.FromCache = true
				m.applyExpiry(doc, &report)
				return report
			}
			m.recordCacheMetrics(ctx, false)
		}
	}

	result := m.verifier.Verify(doc)
	report.Valid = result.Valid
	report.Code = result.Code
	report.Reason = result.Reason
	if key != "" {
		m.cache.Set(key, domain.VerificationReport{
			Valid:  report.Valid,
			Code:   report.Code,
			Reason: report.Reason,
		})
	}
	m.applyExpiry(doc, &report)
	return report
}

func (m *Manager) applyExpiry(doc *license.Document, report *domain.VerificationReport) {
	if doc == nil {
		return
	}
	if expiry, err := doc.Expiry(); err == nil {
		report.ExpiresAt = &expiry
	}
	if err := CheckExpiry(doc, time.Now()); err != nil {
		if ee, ok := AsExpiryError(err); ok && ee.Code == ErrCodeExpired {
			report.Expired = true
		}
	}
}

// CheckExpiry reports whether doc's expiry has passed relative to now. A
// document whose expiry field is absent or null fails with ErrCodeNoExpiry;
// one whose expiry lies strictly before now fails with ErrCodeExpired.
func CheckExpiry(doc *license.Document, now time.Time) error {
	if doc == nil {
		return &ExpiryError{Code: ErrCodeNoExpiry}
	}
	var id string
	if docID, err := doc.Identifier(); err == nil {
		id = docID
	}
	expiry, err := doc.Expiry()
	if err != nil {
		return &ExpiryError{Code: ErrCodeNoExpiry, LicenseID: id}
	}
	if expiry.Before(now) {
		return &ExpiryError{Code: ErrCodeExpired, LicenseID: id, ExpiredAt: expiry}
	}
	return nil
}

// CheckModelDigests re-hashes the model files under root and compares them
// with the digest map stored on doc. It returns the number of stored
// digests checked and one issue per divergent path; enumeration and read
// failures come back as the error instead.
func CheckModelDigests(ctx context.Context, reg *textnorm.Registry, doc *license.Document, field, root string, workers int) (int, []domain.DigestIssue, error) {
	if field == "" {
		field = fileproc.DefaultDigestField
	}
	checked := 0
	if doc != nil {
		if stored, ok := doc.Get(field).(license.Map); ok {
			checked = len(stored)
		}
	}

	err := fileproc.VerifyDigests(ctx, reg, doc, field, root, workers)
	if err == nil {
		return checked, nil, nil
	}
	if ve, ok := license.AsValidationError(err); ok {
		issues := make([]domain.DigestIssue, 0, ve.Len())
		for _, issue := range ve.Issues {
			issues = append(issues, domain.DigestIssue{
				Path:    issue.Field,
				Code:    issue.Code,
				Message: issue.Message,
			})
		}
		return checked, issues, nil
	}
	if fe, ok := license.AsFieldError(err); ok && fe.Code == fileproc.ErrCodeNoDigests {
		return 0, []domain.DigestIssue{{Code: fe.Code, Message: fe.Message}}, nil
	}
	return checked, nil, err
}

func sortedFieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requestIdentifier(req IssueRequest) string {
	for name, value := range req.Fields {
		if strings.EqualFold(name, license.FieldLicenseID) {
			if s, ok := value.(string); ok {
				return s
			}
		}
	}
	return ""
}
