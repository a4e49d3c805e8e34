package main

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gridseal/internal/config"
	"gridseal/internal/fileproc"
	"gridseal/internal/infrastructure"
	"gridseal/internal/license"
	"gridseal/internal/licensing"
	"gridseal/internal/schema"
	"gridseal/internal/security"
	"gridseal/internal/signing"
	"gridseal/internal/textnorm"
	"gridseal/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	fieldsPath := flag.String("fields", "", "JSON file with license field values")
	keyPath := flag.String("key", "", "private key path (defaults to keys.private_key from config)")
	schemaPath := flag.String("schema", "", "field schema path (defaults to schema.file from config)")
	modelsDir := flag.String("models", "", "model directory to digest and embed (optional)")
	digestField := flag.String("digest-field", fileproc.DefaultDigestField, "license field the digests are stored under")
	outPath := flag.String("out", config.DefaultLicenseFile, "license output path")

	overrides := map[string]string{}
	flag.Func("set", "field override as name=value, repeatable", func(s string) error {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return fmt.Errorf("expected name=value, got %q", s)
		}
		overrides[name] = value
		return nil
	})
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()
	logger = infrastructure.WithComponent(logger, "issuer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	fields := map[string]any{}
	if *fieldsPath != "" {
		fields, err = loadFields(*fieldsPath)
		if err != nil {
			logger.Error("Failed to load field values",
				slog.String("path", *fieldsPath),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	for name, raw := range overrides {
		fields[name] = coerceValue(raw)
	}
	if len(fields) == 0 {
		logger.Error("No field values given, use -fields or -set")
		os.Exit(1)
	}

	for name, v := range fields {
		if !strings.EqualFold(name, license.FieldLicenseID) {
			continue
		}
		if id, ok := v.(string); ok {
			if err := security.ValidateLicenseID(id); err != nil {
				logger.Error("License id rejected", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
	}

	fieldSchema, err := loadSchema(*schemaPath, cfg, logger)
	if err != nil {
		os.Exit(1)
	}

	var digests map[string]fileproc.Digest
	if *modelsDir != "" {
		logger.Info("Digesting model tree",
			slog.String("root", *modelsDir),
			slog.Int("workers", cfg.Hashing.Workers))
		digests, err = fileproc.DigestTree(ctx, textnorm.NewRegistry(), *modelsDir, cfg.Hashing.Workers)
		if err != nil {
			logger.Error("Model digesting failed",
				slog.String("root", *modelsDir),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Model tree digested", slog.Int("files", len(digests)))
	}

	resolvedKeyPath := *keyPath
	if resolvedKeyPath == "" {
		resolvedKeyPath = cfg.Keys.PrivateKeyPath
	}
	privateKey, err := loadPrivateKey(resolvedKeyPath, cfg)
	if err != nil {
		logger.Error("Failed to load private key",
			slog.String("path", resolvedKeyPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	scheme, err := cfg.SignatureScheme()
	if err != nil {
		logger.Error("Invalid signature scheme",
			slog.String("scheme", cfg.Keys.Scheme),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	manager, err := licensing.NewManager(licensing.Config{
		PrivateKey: privateKey,
		Scheme:     scheme,
		Schema:     fieldSchema,
		CacheTTL:   cfg.Cache.TTL,
		CacheSize:  cfg.Cache.MaxEntries,
	}, licensing.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to build license manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer manager.Close()

	doc, wire, err := manager.Issue(ctx, licensing.IssueRequest{
		Fields:      fields,
		Digests:     digests,
		DigestField: *digestField,
	})
	if err != nil {
		logger.Error("License issue failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dir := filepath.Dir(*outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("Cannot create output directory",
				slog.String("path", dir),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if err := os.WriteFile(*outPath, append(wire, '\n'), 0644); err != nil {
		logger.Error("Failed to write license file",
			slog.String("path", *outPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	receipt := domain.IssueReceipt{
		KeyFingerprint: manager.Fingerprint(),
		Scheme:         manager.Scheme().String(),
		IssuedAt:       time.Now().UTC(),
		DigestCount:    len(digests),
		OutputPath:     *outPath,
	}
	if id, err := doc.Identifier(); err == nil {
		receipt.LicenseID = id
	}
	if expiry, err := doc.Expiry(); err == nil {
		receipt.ExpiresAt = &expiry
	}
	if v, ok := doc.Lookup("Customer"); ok {
		if s, ok := v.(license.String); ok {
			receipt.Customer = string(s)
		}
	}

	logger.Info("License issued",
		slog.String("license_id", receipt.LicenseID),
		slog.String("output", *outPath),
		slog.Int("digest_count", receipt.DigestCount))

	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		logger.Error("Failed to render receipt", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// loadFields reads a JSON object of field values. Numbers come back as
// json.Number so exact decimal text survives into the document.
func loadFields(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fields, nil
}

// coerceValue interprets one -set value: valid JSON keeps its type
// (numbers, booleans, null, quoted strings, lists, objects), anything
// else is taken as a plain string.
func coerceValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil && !dec.More() {
		return v
	}
	return raw
}

// loadSchema resolves the schema path from the flag or config. A missing
// file on the default config path downgrades to schema-less issuing; an
// explicitly requested schema must load.
func loadSchema(flagPath string, cfg *config.Config, logger *slog.Logger) (*schema.Schema, error) {
	path := flagPath
	if path == "" {
		path = cfg.Schema.File
	}
	if path == "" {
		return nil, nil
	}
	s, err := schema.Load(path)
	if err != nil {
		if flagPath == "" && errors.Is(err, os.ErrNotExist) {
			logger.Warn("Schema file not found, issuing without schema validation",
				slog.String("path", path))
			return nil, nil
		}
		logger.Error("Failed to load schema",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}
	return s, nil
}

func loadPrivateKey(path string, cfg *config.Config) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !security.IsEncryptedKey(data) {
		return signing.DecodePrivateKey(data)
	}
	envelope, err := security.DecodeEncryptedKey(data)
	if err != nil {
		return nil, err
	}
	passphrase, ok := cfg.Passphrase()
	if !ok {
		return nil, fmt.Errorf("key is encrypted and %s is not set", cfg.Keys.PassphraseEnvVar)
	}
	pemKey, err := security.OpenPrivateKey(envelope, passphrase)
	if err != nil {
		return nil, err
	}
	return signing.DecodePrivateKey(pemKey)
}
