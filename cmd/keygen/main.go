package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gridseal/internal/config"
	"gridseal/internal/infrastructure"
	"gridseal/internal/security"
	"gridseal/internal/signing"
	"gridseal/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	bits := flag.Int("bits", config.DefaultKeyBits, "RSA modulus size in bits")
	privateOut := flag.String("private", "", "private key output path (defaults to keys.private_key from config)")
	publicOut := flag.String("public", "", "public key output path (defaults to keys.public_key from config)")
	force := flag.Bool("force", false, "overwrite existing key files")
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
	logger = infrastructure.WithComponent(logger, "keygen")

	if *privateOut == "" {
		*privateOut = cfg.Keys.PrivateKeyPath
	}
	if *publicOut == "" {
		*publicOut = cfg.Keys.PublicKeyPath
	}

	if !*force {
		for _, path := range []string{*privateOut, *publicOut} {
			if _, err := os.Stat(path); err == nil {
				logger.Error("Key file already exists, use -force to overwrite",
					slog.String("path", path))
				os.Exit(1)
			}
		}
	}

	logger.Info("Generating RSA key pair", slog.Int("bits", *bits))
	key, err := signing.GenerateKeyPair(*bits)
	if err != nil {
		logger.Error("Key generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	privatePEM, err := signing.EncodePrivateKey(key)
	if err != nil {
		logger.Error("Failed to encode private key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	publicPEM, err := signing.EncodePublicKey(&key.PublicKey)
	if err != nil {
		logger.Error("Failed to encode public key", slog.String("error", err.Error()))
		os.Exit(1)
	}

	privateBytes := privatePEM
	passphrase, sealed := cfg.Passphrase()
	if sealed {
		envelope, err := security.SealPrivateKey(privatePEM, passphrase)
		if err != nil {
			logger.Error("Failed to seal private key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		privateBytes, err = security.EncodeEncryptedKey(envelope)
		if err != nil {
			logger.Error("Failed to encode key envelope", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Private key sealed with passphrase",
			slog.String("env_var", cfg.Keys.PassphraseEnvVar))
	} else {
		logger.Warn("Writing private key unencrypted, set a passphrase to seal it",
			slog.String("env_var", cfg.Keys.PassphraseEnvVar))
	}

	if err := writeKeyFile(*privateOut, privateBytes, 0600); err != nil {
		logger.Error("Failed to write private key",
			slog.String("path", *privateOut),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := writeKeyFile(*publicOut, publicPEM, 0644); err != nil {
		logger.Error("Failed to write public key",
			slog.String("path", *publicOut),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	descriptor := domain.KeyDescriptor{
		Fingerprint:    signing.Fingerprint(&key.PublicKey),
		Bits:           *bits,
		PrivateKeyPath: *privateOut,
		PublicKeyPath:  *publicOut,
		Encrypted:      sealed,
		CreatedAt:      time.Now().UTC(),
	}

	logger.Info("Key pair written",
		slog.String("fingerprint", descriptor.Fingerprint),
		slog.String("private_key", *privateOut),
		slog.String("public_key", *publicOut),
		slog.Bool("encrypted", sealed))

	out, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		logger.Error("Failed to render key descriptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func writeKeyFile(path string, data []byte, mode os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, mode)
}
