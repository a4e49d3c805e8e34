package schema

import (
	"fmt"
	"strings"

	"gridseal/internal/license"
)

type ruleSet map[string]license.Rule

// Apply registers a type-appropriate rule for every descriptor on reg.
// Existing rules under the same names are replaced.
func (s *Schema) Apply(reg *license.Registry) error {
	if err := s.ensureCompiled(); err != nil {
		return err
	}
	for _, f := range s.Fields {
		reg.Register(f.Name, s.rules[strings.ToLower(f.Name)])
	}
	return nil
}

// Validate checks doc against the schema: required fields must be present
// and non-null, and every populated declared field must satisfy its
// descriptor. All issues are accumulated into one error.
func (s *Schema) Validate(doc *license.Document) error {
	if err := s.ensureCompiled(); err != nil {
		return err
	}

	var issues license.ValidationError
	for _, f := range s.Fields {
		value, ok := doc.Lookup(f.Name)
		if !ok || value.Kind() == license.KindNull {
			if f.Required {
				issues.Append(license.FieldError{
					Field:   f.Name,
					Code:    license.ErrCodeMissingField,
					Message: fmt.Sprintf("required field %s is missing", f.Name),
				})
			}
			continue
		}

		rule := s.rules[strings.ToLower(f.Name)]
		if rule.Validate == nil {
			continue
		}
		if _, err := rule.Validate(f.Name, value); err != nil {
			if fe, ok := license.AsFieldError(err); ok {
				issues.Append(*fe)
			} else {
				issues.Append(license.FieldError{
					Field:   f.Name,
					Code:    license.ErrCodeInvalidValue,
					Message: err.Error(),
				})
			}
		}
	}
	if issues.Len() > 0 {
		return &issues
	}
	return nil
}

func (s *Schema) ensureCompiled() error {
	if s.rules != nil {
		return nil
	}
	if err := s.validate(); err != nil {
		return err
	}
	return s.compile()
}

func (s *Schema) compile() error {
	rules := make(ruleSet, len(s.Fields))
	for _, f := range s.Fields {
		rule, err := f.rule()
		if err != nil {
			return err
		}
		rules[strings.ToLower(f.Name)] = rule
	}
	s.rules = rules
	return nil
}

func (f Field) rule() (license.Rule, error) {
	var chain []license.ValidatorFunc

	switch f.Type {
	case TypeString:
		chain = append(chain, license.KindValidator(license.KindString))
	case TypeInt:
		chain = append(chain, license.IntegerValidator())
	case TypeCount:
		chain = append(chain, license.NonNegativeCount())
	case TypeDecimal:
		chain = append(chain, license.KindValidator(license.KindDecimal, license.KindInt, license.KindFloat))
	case TypeBool:
		chain = append(chain, license.KindValidator(license.KindBool))
	case TypeDatetime:
		chain = append(chain, license.TimestampValidator)
	case TypeGUID:
		chain = append(chain, license.GUIDValidator)
	case TypeList:
		chain = append(chain, license.KindValidator(license.KindList))
	case TypeMap:
		chain = append(chain, license.KindValidator(license.KindMap))
	case TypeAny:
		// no type constraint
	default:
		return license.Rule{}, fmt.Errorf("unknown field type %q", f.Type)
	}

	if f.Pattern != "" {
		pv, err := license.PatternValidator(f.Pattern)
		if err != nil {
			return license.Rule{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		chain = append(chain, pv)
	}
	if f.Min != nil || f.Max != nil {
		chain = append(chain, license.RangeValidator(f.Min, f.Max))
	}

	var rule license.Rule
	if len(chain) > 0 {
		rule.Validate = allowNull(license.ChainValidators(chain...))
	}
	if f.Type == TypeDatetime {
		rule.Serialize = license.TimestampSerializer
	}
	return rule, nil
}

// allowNull lets explicit nulls through every schema rule; requiredness is
// Validate's concern, not the field validator's.
func allowNull(inner license.ValidatorFunc) license.ValidatorFunc {
	return func(field string, value license.Value) (license.Value, error) {
		if value == nil || value.Kind() == license.KindNull {
			return license.Null{}, nil
		}
		return inner(field, value)
	}
}
