package schema

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Names of the schema families bound to the default channels.
const (
	CommandBatch      = "CommandBatch"
	GameStateSnapshot = "GameStateSnapshot"
	HandoffEnvelope   = "HandoffEnvelope"
)

// DefaultBindings maps each default channel to the schema family it accepts.
func DefaultBindings() map[string]string {
	return map[string]string{
		"commands":  CommandBatch,
		"snapshots": GameStateSnapshot,
		"handoff":   HandoffEnvelope,
	}
}

// FieldType is the JSON type a field must have.
type FieldType string

const (
	TypeAny       FieldType = "any"
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBool      FieldType = "bool"
	TypeObject    FieldType = "object"
	TypeArray     FieldType = "array"
	TypeTimestamp FieldType = "timestamp" // RFC 3339 string
)

func (t FieldType) valid() bool {
	switch t {
	case TypeAny, TypeString, TypeNumber, TypeBool, TypeObject, TypeArray, TypeTimestamp:
		return true
	default:
		return false
	}
}

// Field is a single structural rule of a Definition.
type Field struct {
	// Path is a gjson path relative to the enclosing object.
	Path string `yaml:"path"`
	// Type defaults to any.
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	// NonEmpty rejects "", [] and {} (whitespace-only strings count as empty).
	NonEmpty bool `yaml:"non_empty"`
	// Items are checked against every element of an array field.
	Items []Field `yaml:"items"`
	// SchemaFrom names a sibling field whose value is the schema this
	// object field must satisfy. This is what makes a schema an envelope.
	SchemaFrom string `yaml:"schema_from"`
}

// Definition is the structural contract for one schema name and version.
type Definition struct {
	Name    string  `yaml:"name"`
	Version string  `yaml:"version"`
	Fields  []Field `yaml:"fields"`
}

// ID returns "name@version".
func (d Definition) ID() string {
	return d.Name + "@" + d.Version
}

// Normalized returns a copy with a canonical version and defaulted field
// types, or an error describing why the definition is unusable.
func (d Definition) Normalized() (Definition, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Definition{}, fmt.Errorf("schema: definition name is required")
	}
	canon, ok := CanonicalVersion(d.Version)
	if !ok {
		return Definition{}, fmt.Errorf("schema: %s: version %q is not a semantic version", d.Name, d.Version)
	}
	d.Version = canon

	fields, err := normalizeFields(d.Fields)
	if err != nil {
		return Definition{}, fmt.Errorf("schema: %s: %w", d.ID(), err)
	}
	d.Fields = fields
	return d, nil
}

func normalizeFields(in []Field) ([]Field, error) {
	out := make([]Field, 0, len(in))
	for i, f := range in {
		f.Path = strings.TrimSpace(f.Path)
		if f.Path == "" {
			return nil, fmt.Errorf("field %d: path is required", i)
		}
		if f.Type == "" {
			f.Type = TypeAny
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("field %q: unknown type %q", f.Path, f.Type)
		}
		if len(f.Items) > 0 {
			if f.Type != TypeArray {
				return nil, fmt.Errorf("field %q: items requires type array", f.Path)
			}
			items, err := normalizeFields(f.Items)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Path, err)
			}
			f.Items = items
		}
		if f.SchemaFrom != "" && f.Type != TypeObject {
			return nil, fmt.Errorf("field %q: schema_from requires type object", f.Path)
		}
		out = append(out, f)
	}
	return out, nil
}

// CanonicalVersion returns v as a canonical MAJOR.MINOR.PATCH string without
// the leading "v". Build metadata is dropped; prerelease tags are kept.
func CanonicalVersion(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	canon := semver.Canonical(v)
	if canon == "" {
		return "", false
	}
	return strings.TrimPrefix(canon, "v"), true
}

// compareVersions orders two canonical versions.
func compareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}
