package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridseal/internal/license"
)

func loadTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := Load(filepath.Join("testdata", "gridseal_fields.yaml"))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Loading and Parsing
// =============================================================================

func TestLoadYAML(t *testing.T) {
	s := loadTestSchema(t)

	assert.Len(t, s.Fields, 14)
	assert.Equal(t, "LicenseId", s.Names()[0])

	f, ok := s.Descriptor("maxusers")
	require.True(t, ok)
	assert.Equal(t, "MaxUsers", f.Name)
	assert.Equal(t, TypeCount, f.Type)
	assert.True(t, f.Required)

	assert.Equal(t, []string{"Notes"}, s.Unsigned())
	assert.Equal(t, map[string]string{
		"IssueId":   "guid",
		"IssuedUtc": "timestamp",
		"Customer":  "uppercase",
	}, s.Processors())
}

func TestParseJSON(t *testing.T) {
	raw := []byte(`{
		"fields": [
			{"name": "LicenseId", "type": "string", "required": true},
			{"name": "Seats", "type": "count", "max": 500}
		]
	}`)

	s, err := Parse(raw, FormatJSON)
	require.NoError(t, err)
	assert.Len(t, s.Fields, 2)

	seats, ok := s.Descriptor("Seats")
	require.True(t, ok)
	require.NotNil(t, seats.Max)
	assert.Equal(t, 500.0, *seats.Max)
}

func TestParseRejectsBadSchemas(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no fields", yaml: "fields: []\n"},
		{name: "missing name", yaml: "fields:\n  - type: string\n"},
		{name: "unknown type", yaml: "fields:\n  - name: A\n    type: blob\n"},
		{name: "unknown processor", yaml: "fields:\n  - name: A\n    type: string\n    process: rot13\n"},
		{
			name: "duplicate names differ only by case",
			yaml: "fields:\n  - name: Edition\n    type: string\n  - name: EDITION\n    type: int\n",
		},
		{name: "broken pattern", yaml: "fields:\n  - name: A\n    type: string\n    pattern: \"([\"\n"},
		{name: "min above max", yaml: "fields:\n  - name: A\n    type: int\n    min: 9.0\n    max: 1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), FormatYAML)
			assert.Error(t, err)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := Parse([]byte("fields: []"), Format("toml"))
		assert.Error(t, err)
	})
}

// =============================================================================
// Registry Wiring
// =============================================================================

func TestApply(t *testing.T) {
	s := loadTestSchema(t)
	reg := license.NewRegistry()
	require.NoError(t, s.Apply(reg))

	doc := license.NewDocument(reg)

	t.Run("count fields reject negatives and enforce max", func(t *testing.T) {
		assert.Error(t, doc.Set("MaxUsers", license.Int(-1)))
		assert.Error(t, doc.Set("MaxUsers", license.Int(200000)))
		assert.NoError(t, doc.Set("MaxUsers", license.Int(250)))
	})

	t.Run("pattern fields", func(t *testing.T) {
		assert.NoError(t, doc.Set("Edition", license.String("professional")))
		assert.Error(t, doc.Set("Edition", license.String("gold")))
		assert.Equal(t, license.String("professional"), doc.Get("Edition"))
	})

	t.Run("guid fields normalize to lowercase", func(t *testing.T) {
		require.NoError(t, doc.Set("IssueId", license.String("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")))
		assert.Equal(t, license.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), doc.Get("IssueId"))
	})

	t.Run("datetime fields parse to UTC time", func(t *testing.T) {
		require.NoError(t, doc.Set("IssuedUtc", license.String("2026-01-02")))
		assert.Equal(t, license.KindTime, doc.Get("IssuedUtc").Kind())
	})

	t.Run("int fields with bounds", func(t *testing.T) {
		assert.Error(t, doc.Set("SupportTier", license.Int(5)))
		assert.NoError(t, doc.Set("SupportTier", license.Int(2)))
	})

	t.Run("bool fields", func(t *testing.T) {
		assert.NoError(t, doc.Set("Trial", license.Bool(true)))
		assert.Error(t, doc.Set("Trial", license.Int(1)))
	})

	t.Run("explicit null passes every schema rule", func(t *testing.T) {
		assert.NoError(t, doc.Set("Edition", license.Null{}))
		assert.NoError(t, doc.Set("LoadFactor", license.Null{}))
	})
}

// =============================================================================
// Document Conformance
// =============================================================================

func TestValidateDocument(t *testing.T) {
	s := loadTestSchema(t)

	t.Run("complete document passes", func(t *testing.T) {
		reg := license.NewRegistry()
		require.NoError(t, s.Apply(reg))

		doc := license.NewDocument(reg)
		require.NoError(t, doc.Set("LicenseId", license.String("GRID-1001")))
		require.NoError(t, doc.Set("ExpiryUtc", license.String("2027-01-01T00:00:00Z")))
		require.NoError(t, doc.Set("Customer", license.String("AMPERE POWER")))
		require.NoError(t, doc.Set("MaxUsers", license.Int(50)))

		assert.NoError(t, s.Validate(doc))
	})

	t.Run("all failures are accumulated", func(t *testing.T) {
		// An unruled registry lets nonconforming values in, Validate has
		// to catch them afterwards.
		doc := license.NewDocument(license.NewEmptyRegistry())
		require.NoError(t, doc.Set("MaxUsers", license.String("many")))

		err := s.Validate(doc)
		require.Error(t, err)

		ve, ok := license.AsValidationError(err)
		require.True(t, ok)

		fields := make([]string, 0, ve.Len())
		for _, issue := range ve.Issues {
			fields = append(fields, issue.Field)
		}
		// Three required fields missing plus one type failure.
		assert.ElementsMatch(t, []string{"LicenseId", "ExpiryUtc", "Customer", "MaxUsers"}, fields)
	})

	t.Run("required null counts as missing", func(t *testing.T) {
		doc := license.NewDocument(license.NewEmptyRegistry())
		require.NoError(t, doc.Set("LicenseId", license.String("GRID-1001")))
		require.NoError(t, doc.Set("ExpiryUtc", license.String("2027-01-01T00:00:00Z")))
		require.NoError(t, doc.Set("MaxUsers", license.Int(10)))
		require.NoError(t, doc.Set("Customer", license.Null{}))

		err := s.Validate(doc)
		require.Error(t, err)

		ve, ok := license.AsValidationError(err)
		require.True(t, ok)
		require.Equal(t, 1, ve.Len())
		assert.Equal(t, "Customer", ve.Issues[0].Field)
		assert.Equal(t, license.ErrCodeMissingField, ve.Issues[0].Code)
	})

	t.Run("undeclared fields are not the schema's concern", func(t *testing.T) {
		reg := license.NewRegistry()
		require.NoError(t, s.Apply(reg))

		doc := license.NewDocument(reg)
		require.NoError(t, doc.Set("LicenseId", license.String("GRID-1001")))
		require.NoError(t, doc.Set("ExpiryUtc", license.String("2027-01-01T00:00:00Z")))
		require.NoError(t, doc.Set("Customer", license.String("AMPERE POWER")))
		require.NoError(t, doc.Set("MaxUsers", license.Int(50)))
		require.NoError(t, doc.Set("Whatever", license.Int(1)))

		assert.NoError(t, s.Validate(doc))
	})
}
