package license

import (
	"sort"
	"strings"
	"sync"
)

// ValidatorFunc checks a candidate value for a field and may rewrite it to
// a normalized form (for example parsing timestamp text into a Time value).
// The returned value is what the document stores.
type ValidatorFunc func(field string, value Value) (Value, error)

// SerializerFunc transforms a stored value just before wire output.
type SerializerFunc func(field string, value Value) (Value, error)

// Rule bundles the per-field hooks a registry holds. Either hook may be nil.
type Rule struct {
	Validate  ValidatorFunc
	Serialize SerializerFunc
}

// Registry maps field names to their validation and serialization rules.
// Names match case-insensitively and registration is last-wins, so a later
// Register for "LICENSEID" silently replaces the rule for "LicenseId".
// Registries are safe for concurrent use; writes are serialized, lookups
// only take the read lock.
//
// Every document carries an explicit registry reference. There is no global
// registry: two documents built against different registries validate
// independently.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	names map[string]string
}

// NewRegistry returns a registry preloaded with the rules for the mandatory
// document fields.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register(FieldLicenseID, Rule{Validate: IdentifierValidator})
	r.Register(FieldExpiry, Rule{Validate: TimestampValidator, Serialize: TimestampSerializer})
	r.Register(FieldSignature, Rule{Validate: SignatureValidator})
	return r
}

// NewEmptyRegistry returns a registry with no rules at all.
func NewEmptyRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
		names: make(map[string]string),
	}
}

// Register stores a rule under name, replacing any existing rule whose name
// matches case-insensitively.
func (r *Registry) Register(name string, rule Rule) {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[key] = rule
	r.names[key] = name
}

// Lookup returns the rule registered for name, matching case-insensitively.
func (r *Registry) Lookup(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[strings.ToLower(name)]
	return rule, ok
}

// Names returns the registered field names (as registered, most recent
// casing) in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many rules are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
