package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridseal/internal/config"
	"gridseal/internal/fileproc"
	"gridseal/internal/infrastructure"
	"gridseal/internal/license"
	"gridseal/internal/licensing"
	"gridseal/internal/signing"
	"gridseal/internal/textnorm"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	licensePath := flag.String("license", config.DefaultLicenseFile, "license file to verify")
	keyPath := flag.String("key", "", "public key path (defaults to keys.public_key from config)")
	checkExpiry := flag.Bool("check-expiry", false, "fail when the license is expired")
	modelsDir := flag.String("models", "", "model directory to re-verify against embedded digests (optional)")
	digestField := flag.String("digest-field", fileproc.DefaultDigestField, "license field the digests are stored under")
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
	logger = infrastructure.WithComponent(logger, "verifier")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	raw, err := os.ReadFile(*licensePath)
	if err != nil {
		logger.Error("Failed to read license file",
			slog.String("path", *licensePath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolvedKeyPath := *keyPath
	if resolvedKeyPath == "" {
		resolvedKeyPath = cfg.Keys.PublicKeyPath
	}
	keyPEM, err := os.ReadFile(resolvedKeyPath)
	if err != nil {
		logger.Error("Failed to read public key",
			slog.String("path", resolvedKeyPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	publicKey, err := signing.DecodePublicKey(keyPEM)
	if err != nil {
		logger.Error("Failed to parse public key",
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
		PublicKey: publicKey,
		Scheme:    scheme,
		CacheTTL:  cfg.Cache.TTL,
		CacheSize: cfg.Cache.MaxEntries,
	}, licensing.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to build license manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer manager.Close()

	report := manager.VerifyJSON(ctx, raw)

	// Embedded digests are only trustworthy under a valid signature.
	if *modelsDir != "" && report.Valid {
		doc, err := license.ParseDocument(manager.Registry(), raw)
		if err != nil {
			logger.Error("Failed to parse license for digest checks",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		checked, issues, err := licensing.CheckModelDigests(ctx, textnorm.NewRegistry(), doc,
			*digestField, *modelsDir, cfg.Hashing.Workers)
		if err != nil {
			logger.Error("Model digest check failed",
				slog.String("root", *modelsDir),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		report.DigestsChecked = checked
		report.DigestIssues = issues
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("Failed to render report", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(string(out))

	logger.Info("Verification finished",
		slog.Bool("valid", report.Valid),
		slog.Bool("expired", report.Expired),
		slog.Int("digest_issues", len(report.DigestIssues)))

	if !report.Valid || (*checkExpiry && report.Expired) || len(report.DigestIssues) > 0 {
		os.Exit(1)
	}
}
