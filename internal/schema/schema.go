// Package schema loads field descriptor files that declare the shape of a
// license: which fields exist, their types and constraints, which are
// required, which stay outside the signature, and which are filled in at
// issue time. A loaded schema configures a license.Registry and checks
// finished documents for conformance.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Field types a descriptor may declare.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeCount    = "count"
	TypeDecimal  = "decimal"
	TypeBool     = "bool"
	TypeDatetime = "datetime"
	TypeGUID     = "guid"
	TypeList     = "list"
	TypeMap      = "map"
	TypeAny      = "any"
)

// Format identifies a descriptor file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Field describes one license field.
type Field struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Type        string   `yaml:"type" json:"type" validate:"required,oneof=string int count decimal bool datetime guid list map any"`
	Required    bool     `yaml:"required" json:"required"`
	Signed      *bool    `yaml:"signed" json:"signed,omitempty" validate:"-"`
	Process     string   `yaml:"process" json:"process,omitempty" validate:"omitempty,oneof=guid timestamp uppercase"`
	Min         *float64 `yaml:"min" json:"min,omitempty"`
	Max         *float64 `yaml:"max" json:"max,omitempty"`
	Pattern     string   `yaml:"pattern" json:"pattern,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
}

// IsSigned reports whether the field is covered by the signature. Fields
// are signed unless the descriptor says signed: false.
func (f Field) IsSigned() bool {
	return f.Signed == nil || *f.Signed
}

// Schema is an ordered set of field descriptors.
type Schema struct {
	Fields []Field `yaml:"fields" json:"fields" validate:"required,min=1,dive"`

	rules ruleSet
}

var descriptorValidator = validator.New()

// Load reads a descriptor file, picking the format from the extension:
// .json parses as JSON, everything else as YAML.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse decodes and validates a descriptor document.
func Parse(data []byte, format Format) (*Schema, error) {
	var s Schema
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse JSON schema: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse YAML schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown schema format %q", format)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if err := descriptorValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid schema: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("invalid schema: %w", err)
	}

	seen := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		key := strings.ToLower(strings.TrimSpace(f.Name))
		if key == "" {
			return fmt.Errorf("invalid schema: blank field name")
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("invalid schema: field %q collides with %q", f.Name, prev)
		}
		seen[key] = f.Name

		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return fmt.Errorf("invalid schema: field %s: %w", f.Name, err)
			}
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("invalid schema: field %s: min %v exceeds max %v", f.Name, *f.Min, *f.Max)
		}
	}
	return nil
}

// Names returns the declared field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Descriptor returns the descriptor for name, matching case-insensitively.
func (s *Schema) Descriptor(name string) (Field, bool) {
	key := strings.ToLower(name)
	for _, f := range s.Fields {
		if strings.ToLower(f.Name) == key {
			return f, true
		}
	}
	return Field{}, false
}

// Unsigned returns the fields declared signed: false, in declaration
// order. Signers and verifiers take this as their exclusion set.
func (s *Schema) Unsigned() []string {
	var out []string
	for _, f := range s.Fields {
		if !f.IsSigned() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Processors maps field names to their issue-time processor names.
func (s *Schema) Processors() map[string]string {
	out := make(map[string]string)
	for _, f := range s.Fields {
		if f.Process != "" {
			out[f.Name] = f.Process
		}
	}
	return out
}
