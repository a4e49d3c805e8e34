package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sort"
	"syscall"

	"gridseal/internal/config"
	"gridseal/internal/fileproc"
	"gridseal/internal/infrastructure"
	"gridseal/internal/security"
	"gridseal/internal/textnorm"
)

func main() {
	configPath := flag.String("config", "", "config file path (optional)")
	root := flag.String("root", ".", "base directory; positional paths are resolved inside it")
	workers := flag.Int("workers", 0, "digest workers (defaults to hashing.workers from config)")
	asJSON := flag.Bool("json", false, "print digests as a JSON object")
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
	logger = infrastructure.WithComponent(logger, "modelhash")

	if *workers == 0 {
		*workers = cfg.Hashing.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := textnorm.NewRegistry()
	digests := map[string]fileproc.Digest{}

	if args := flag.Args(); len(args) == 0 {
		digests, err = fileproc.DigestTree(ctx, reg, *root, *workers)
		if err != nil {
			logger.Error("Digesting failed",
				slog.String("root", *root),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		for _, arg := range args {
			resolved, err := security.EnsureWithinRoot(*root, arg)
			if err != nil {
				logger.Error("Path rejected",
					slog.String("path", arg),
					slog.String("error", err.Error()))
				os.Exit(1)
			}
			info, err := os.Stat(resolved)
			if err != nil {
				logger.Error("Cannot stat path",
					slog.String("path", resolved),
					slog.String("error", err.Error()))
				os.Exit(1)
			}
			if info.IsDir() {
				sub, err := fileproc.DigestTree(ctx, reg, resolved, *workers)
				if err != nil {
					logger.Error("Digesting failed",
						slog.String("root", resolved),
						slog.String("error", err.Error()))
					os.Exit(1)
				}
				for rel, digest := range sub {
					digests[path.Join(filepath.ToSlash(arg), rel)] = digest
				}
			} else {
				digest, err := fileproc.DigestFile(reg, resolved)
				if err != nil {
					logger.Error("Digesting failed",
						slog.String("path", resolved),
						slog.String("error", err.Error()))
					os.Exit(1)
				}
				digests[filepath.ToSlash(arg)] = digest
			}
		}
	}

	logger.Info("Digesting complete", slog.Int("files", len(digests)))

	if *asJSON {
		out, err := json.MarshalIndent(digests, "", "  ")
		if err != nil {
			logger.Error("Failed to render digests", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	keys := make([]string, 0, len(digests))
	for k := range digests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s  %s\n", digests[k], k)
	}
}
