// Package fileproc holds the issue-time field processors and the model
// file digest pipeline: licensed network model trees are canonicalized per
// extension and hashed, and the resulting digests travel inside the signed
// license document.
package fileproc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"gridseal/internal/license"
)

// ErrUnknownProcessor is returned for processor names no one registered.
var ErrUnknownProcessor = errors.New("unknown field processor")

// Processor names a schema may reference.
const (
	ProcessorGUID      = "guid"
	ProcessorTimestamp = "timestamp"
	ProcessorUppercase = "uppercase"
)

// ProcessorFunc fills or transforms one document field at issue time.
type ProcessorFunc func(doc *license.Document, field string) error

var processors = map[string]ProcessorFunc{
	ProcessorGUID:      fillGUID,
	ProcessorTimestamp: fillTimestamp,
	ProcessorUppercase: uppercaseField,
}

// LookupProcessor returns the processor registered under name.
func LookupProcessor(name string) (ProcessorFunc, bool) {
	p, ok := processors[name]
	return p, ok
}

// ProcessorNames returns the known processor names, sorted.
func ProcessorNames() []string {
	names := make([]string, 0, len(processors))
	for name := range processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunProcessors applies the field-to-processor assignments to doc in
// deterministic field order. An unknown processor name fails the whole run.
func RunProcessors(doc *license.Document, assignments map[string]string) error {
	fields := make([]string, 0, len(assignments))
	for field := range assignments {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		name := assignments[field]
		proc, ok := LookupProcessor(name)
		if !ok {
			return fmt.Errorf("%w: %q (field %s)", ErrUnknownProcessor, name, field)
		}
		if err := proc(doc, field); err != nil {
			return fmt.Errorf("process field %s: %w", field, err)
		}
	}
	return nil
}

// fillGUID stamps a fresh v4 UUID into an absent or null field. Fields that
// already hold a value keep it.
func fillGUID(doc *license.Document, field string) error {
	if value, ok := doc.Lookup(field); ok && value.Kind() != license.KindNull {
		return nil
	}
	return doc.Set(field, license.String(uuid.NewString()))
}

// fillTimestamp stamps the current UTC instant into an absent or null field.
func fillTimestamp(doc *license.Document, field string) error {
	if value, ok := doc.Lookup(field); ok && value.Kind() != license.KindNull {
		return nil
	}
	return doc.Set(field, license.NewTime(time.Now()))
}

// uppercaseField uppercases an existing string field. Absent and null
// fields are left alone; other kinds are an error.
func uppercaseField(doc *license.Document, field string) error {
	value, ok := doc.Lookup(field)
	if !ok || value.Kind() == license.KindNull {
		return nil
	}
	s, ok := value.(license.String)
	if !ok {
		return fmt.Errorf("uppercase processor needs a string, field %s holds %s", field, value.Kind())
	}
	return doc.Set(field, license.String(strings.ToUpper(string(s))))
}
