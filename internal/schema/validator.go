package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/tidwall/gjson"
)

// MaxEnvelopeDepth bounds how many envelopes may be nested inside each other.
const MaxEnvelopeDepth = 8

// Tier identifies how thoroughly a document was checked.
type Tier string

const (
	TierFull  Tier = "full"
	TierLight Tier = "light"
)

// Header holds the schema identifiers a document declares.
type Header struct {
	SchemaName    string
	SchemaVersion string
}

// Verdict is the outcome of validating one document.
type Verdict struct {
	Valid bool
	// Reason is the human-readable failure text, empty when Valid.
	Reason string
	Tier   Tier
	// Header is populated whenever the identifiers could be read.
	Header Header
	// Err is the underlying *errors.ValidationError, nil when Valid.
	Err error
}

func pass(tier Tier, h Header) Verdict {
	return Verdict{Valid: true, Tier: tier, Header: h}
}

func fail(tier Tier, h Header, err *perrors.ValidationError) Verdict {
	return Verdict{Tier: tier, Header: h, Reason: err.Error(), Err: err}
}

// Validator checks documents against a Source. The zero value is not usable;
// construct one with NewValidator.
type Validator struct {
	source Source
}

// NewValidator returns a validator over source. Pass nil to validate in the
// light tier only.
func NewValidator(source Source) *Validator {
	return &Validator{source: source}
}

// Tier reports which tier this validator runs.
func (v *Validator) Tier() Tier {
	if v.source == nil {
		return TierLight
	}
	return TierFull
}

// Validate checks raw against the contract it declares.
func (v *Validator) Validate(raw []byte) Verdict {
	return v.ValidateFor("", raw)
}

// ValidateFor checks raw and additionally requires its schemaName to equal
// family, the schema accepted by the channel it arrived on. An empty family
// accepts any schema.
func (v *Validator) ValidateFor(family string, raw []byte) Verdict {
	tier := v.Tier()

	if !gjson.ValidBytes(raw) {
		return fail(tier, Header{}, invalidJSON(raw))
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return fail(tier, Header{}, perrors.NewValidationError(perrors.ErrInvalidJSON,
			"top-level value must be an object"))
	}

	h, err := readHeader(doc)
	if err != nil {
		return fail(tier, h, err)
	}
	if family != "" && h.SchemaName != family {
		return fail(tier, h, perrors.NewValidationError(perrors.ErrChannelMismatch,
			fmt.Sprintf("got %s, channel accepts %s", h.SchemaName, family)).
			WithField("schemaName"))
	}
	if tier == TierLight {
		return pass(tier, h)
	}

	if err := v.checkDocument(doc, h.SchemaName, h.SchemaVersion, 0); err != nil {
		return fail(tier, h, err)
	}
	return pass(tier, h)
}

func invalidJSON(raw []byte) *perrors.ValidationError {
	verr := perrors.NewValidationError(perrors.ErrInvalidJSON, "")
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		verr = verr.WithCause(err)
	}
	return verr
}

func readHeader(doc gjson.Result) (Header, *perrors.ValidationError) {
	name, version := doc.Get("schemaName"), doc.Get("schemaVersion")
	h := Header{SchemaName: name.Str, SchemaVersion: version.Str}

	var missing []string
	if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
		missing = append(missing, "schemaName")
	}
	if version.Type != gjson.String || strings.TrimSpace(version.Str) == "" {
		missing = append(missing, "schemaVersion")
	}
	if len(missing) > 0 {
		return h, perrors.NewValidationError(perrors.ErrMissingIdentifiers,
			strings.Join(missing, " and ")+" must be non-empty strings")
	}
	return h, nil
}

// checkDocument validates obj against the definition for name at version.
// depth counts enclosing envelopes.
func (v *Validator) checkDocument(obj gjson.Result, name, version string, depth int) *perrors.ValidationError {
	canon, ok := CanonicalVersion(version)
	if !ok {
		return perrors.NewValidationError(perrors.ErrUnknownSchema,
			fmt.Sprintf("version %q is not a semantic version", version)).WithSchema(name)
	}
	def, ok := v.source.Lookup(name, canon)
	if !ok {
		return perrors.NewValidationError(perrors.ErrUnknownSchema,
			"no contract registered").WithSchema(name + "@" + canon)
	}
	for _, f := range def.Fields {
		if err := v.checkField(obj, f, "", def.ID(), depth); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkField(scope gjson.Result, f Field, prefix, schemaID string, depth int) *perrors.ValidationError {
	path := f.Path
	if prefix != "" {
		path = prefix + "." + f.Path
	}
	violation := func(format string, args ...any) *perrors.ValidationError {
		return perrors.NewValidationError(perrors.ErrSchemaViolation,
			fmt.Sprintf("field %q ", path)+fmt.Sprintf(format, args...)).
			WithSchema(schemaID).WithField(path)
	}

	res := scope.Get(f.Path)
	if !res.Exists() {
		if f.Required {
			return violation("is required")
		}
		return nil
	}

	if got, ok := matchType(res, f.Type); !ok {
		if f.Type == TypeTimestamp && got == "string" {
			return violation("must be an RFC 3339 timestamp, got %q", res.Str)
		}
		return violation("must be %s, got %s", f.Type, got)
	}

	if f.NonEmpty && isEmpty(res) {
		return violation("must not be empty")
	}

	for i, elem := range itemsOf(res, f) {
		for _, item := range f.Items {
			if err := v.checkField(elem, item, fmt.Sprintf("%s[%d]", path, i), schemaID, depth); err != nil {
				return err
			}
		}
	}

	if f.SchemaFrom != "" {
		return v.checkPayload(scope, res, f, path, schemaID, depth)
	}
	return nil
}

// checkPayload validates an envelope's nested object against the schema
// named by its sibling SchemaFrom field.
func (v *Validator) checkPayload(scope, payload gjson.Result, f Field, path, schemaID string, depth int) *perrors.ValidationError {
	wrap := func(kind error, detail string) *perrors.ValidationError {
		return perrors.NewValidationError(kind, detail).WithSchema(schemaID).WithField(path)
	}

	inner := scope.Get(f.SchemaFrom)
	if inner.Type != gjson.String || strings.TrimSpace(inner.Str) == "" {
		return wrap(perrors.ErrSchemaViolation, fmt.Sprintf("field %q must name the schema of %q", f.SchemaFrom, path))
	}
	if depth+1 > MaxEnvelopeDepth {
		return wrap(perrors.ErrSchemaViolation, fmt.Sprintf("envelopes nested deeper than %d levels", MaxEnvelopeDepth))
	}

	name := inner.Str
	if declared := payload.Get("schemaName"); declared.Exists() && declared.String() != name {
		return wrap(perrors.ErrSchemaViolation,
			fmt.Sprintf("payload declares schemaName %q but %q is %q", declared.String(), f.SchemaFrom, name))
	}

	version := payload.Get("schemaVersion").String()
	if version == "" {
		latest, ok := latestVersion(v.source, name)
		if !ok {
			return wrap(perrors.ErrUnknownSchema, fmt.Sprintf("no contract registered for payload type %q", name))
		}
		version = latest
	}

	if err := v.checkDocument(payload, name, version, depth+1); err != nil {
		return wrap(err.Kind, "payload").WithCause(err)
	}
	return nil
}

func matchType(res gjson.Result, t FieldType) (string, bool) {
	got := jsonType(res)
	switch t {
	case TypeAny:
		return got, true
	case TypeTimestamp:
		if res.Type != gjson.String {
			return got, false
		}
		_, err := time.Parse(time.RFC3339, res.Str)
		return got, err == nil
	default:
		return got, got == string(t)
	}
}

func jsonType(res gjson.Result) string {
	switch {
	case res.IsObject():
		return "object"
	case res.IsArray():
		return "array"
	case res.IsBool():
		return "bool"
	}
	switch res.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	default:
		return "null"
	}
}

func isEmpty(res gjson.Result) bool {
	switch {
	case res.IsArray():
		return len(res.Array()) == 0
	case res.IsObject():
		return len(res.Map()) == 0
	case res.Type == gjson.String:
		return strings.TrimSpace(res.Str) == ""
	default:
		return false
	}
}

func itemsOf(res gjson.Result, f Field) []gjson.Result {
	if len(f.Items) == 0 || !res.IsArray() {
		return nil
	}
	return res.Array()
}
