// Package license implements the GridSeal license document model: a
// case-insensitive mapping from field names to dynamic values, validated
// through a per-document field registry.
//
// # Architecture Overview
//
// The document model consists of:
//
//	- Value: closed set of field value kinds (string, int, decimal, float,
//	  bool, null, list, map, time)
//	- Document: the license itself, with three mandatory fields seeded at
//	  construction (LicenseId, ExpiryUtc, Signature)
//	- Registry: named validation and serialization rules, matched
//	  case-insensitively, explicitly passed to each document
//	- Wire codec: JSON marshalling with exact numerics and RFC3339 UTC
//	  timestamps
//
// # Value Model
//
// Everything stored in a document is one of the Value kinds; arbitrary
// interface values never enter. Numbers narrow to the most precise
// representation on ingestion:
//
//	1. int64 when the value is integral and in range
//	2. exact decimal text otherwise
//	3. float64 only for inputs that are already binary floats
//
// NormalizeNumber gives every spelling of the same number a single textual
// form, which both the wire codec and the canonical encoder reuse.
//
// # Registries
//
// A registry maps field names to validators and serializers. Registration
// is last-wins and lookups are case-insensitive. There is no global
// registry: documents built against different registries validate
// independently, and tests can build throwaway registries without touching
// shared state.
//
// # Validation Flow
//
// Set runs the registered validator for the field, which may rewrite the
// value (timestamp text becomes a Time value). EnsureMandatory checks the
// three mandatory fields and accumulates every failure into a single
// ValidationError rather than stopping at the first.
//
// # Error Handling
//
// The package reports failures through two types:
//
//	- FieldError: one field, with a stable application code
//	- ValidationError: an accumulated list of FieldError issues
//
// Codes such as MISSING_FIELD and INVALID_VALUE are part of the tool
// contract and safe to branch on.
package license
