package textnorm

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps file extensions to canonicalizers. Extensions are stored
// lowercase with a leading dot; registration is last-wins. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]Canonicalizer
}

// NewRegistry returns a registry loaded with the default mappings: generic
// for .txt, .cfg and .dat, netmodel for .net and .nmf.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	generic := Generic()
	netmodel := NetModel()
	r.Register(".txt", generic)
	r.Register(".cfg", generic)
	r.Register(".dat", generic)
	r.Register(".net", netmodel)
	r.Register(".nmf", netmodel)
	return r
}

// NewEmptyRegistry returns a registry with no mappings.
func NewEmptyRegistry() *Registry {
	return &Registry{byExt: make(map[string]Canonicalizer)}
}

// Register maps ext to c, replacing any existing mapping. A missing leading
// dot is added; blank extensions and nil canonicalizers are ignored.
func (r *Registry) Register(ext string, c Canonicalizer) {
	key := normalizeExt(ext)
	if key == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt[key] = c
}

// Lookup returns the canonicalizer for ext, matching case-insensitively.
func (r *Registry) Lookup(ext string) (Canonicalizer, bool) {
	key := normalizeExt(ext)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byExt[key]
	return c, ok
}

// ForPath returns the canonicalizer registered for path's extension.
func (r *Registry) ForPath(path string) (Canonicalizer, bool) {
	return r.Lookup(filepath.Ext(path))
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Len reports the number of registered extensions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byExt)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
