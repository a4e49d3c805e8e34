package fileproc

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"gridseal/internal/license"
	"gridseal/internal/textnorm"
)

// Digest verification issue codes, reported through license.FieldError.
const (
	ErrCodeNoDigests      = "NO_DIGESTS"
	ErrCodeDigestMismatch = "DIGEST_MISMATCH"
	ErrCodeFileMissing    = "FILE_MISSING"
	ErrCodeFileUnexpected = "FILE_UNEXPECTED"
)

// ListFiles enumerates the regular files under root as sorted slash-separated
// paths relative to root. Directories and files whose name starts with a dot
// are skipped, as is anything that is not a regular file.
func ListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// DigestTree digests every file ListFiles finds under root, canonicalizing
// through reg. Hashing runs on up to workers goroutines; workers <= 0 means
// one per CPU. The first error, including context cancellation, stops the
// remaining work.
func DigestTree(ctx context.Context, reg *textnorm.Registry, root string, workers int) (map[string]Digest, error) {
	paths, err := ListFiles(root)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	digests := make(map[string]Digest, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rel := range paths {
		rel := rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := DigestFile(reg, filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			mu.Lock()
			digests[rel] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// VerifyDigests recomputes the digests under root and compares them with the
// map stored on doc. Mismatched content, files the license names that are
// gone, and files on disk the license never covered are all collected into
// one license.ValidationError keyed by relative path.
func VerifyDigests(ctx context.Context, reg *textnorm.Registry, doc *license.Document, field, root string, workers int) error {
	if field == "" {
		field = DefaultDigestField
	}
	var stored license.Map
	ok := false
	if doc != nil {
		stored, ok = doc.Get(field).(license.Map)
	}
	if !ok {
		return &license.FieldError{
			Field:   field,
			Code:    ErrCodeNoDigests,
			Message: "license carries no model digest map",
		}
	}

	actual, err := DigestTree(ctx, reg, root, workers)
	if err != nil {
		return err
	}

	var issues license.ValidationError
	for _, rel := range sortedKeys(stored) {
		want, isString := stored[rel].(license.String)
		got, onDisk := actual[rel]
		switch {
		case !onDisk:
			issues.Append(license.FieldError{
				Field:   rel,
				Code:    ErrCodeFileMissing,
				Message: "licensed model file is missing",
			})
		case !isString || got.String() != string(want):
			issues.Append(license.FieldError{
				Field:   rel,
				Code:    ErrCodeDigestMismatch,
				Message: "model file content does not match its licensed digest",
			})
		}
	}
	for _, rel := range sortedDigestKeys(actual) {
		if _, covered := stored[rel]; !covered {
			issues.Append(license.FieldError{
				Field:   rel,
				Code:    ErrCodeFileUnexpected,
				Message: "model file is not covered by the license",
			})
		}
	}
	if issues.Len() > 0 {
		return &issues
	}
	return nil
}

func sortedKeys(m license.Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDigestKeys(m map[string]Digest) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
