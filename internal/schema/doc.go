// Package schema decides whether a message satisfies the contract it
// declares through its top-level schemaName and schemaVersion fields.
//
// Contracts are data, not code. A [Definition] lists the fields a schema
// requires, their types, and the structural rules on them; a [Source] maps a
// (name, version) pair to a Definition. Definitions ship built in
// ([Builtin]) and can be extended from YAML files ([LoadDir]).
//
// # Tiers
//
// A [Validator] built with a Source performs full-tier validation: every
// field rule of the declared contract is checked, and envelope fields (those
// with schema_from) are validated recursively against the schema their
// sibling field names. A Validator built without a Source falls back to the
// light tier, which only checks that the document is a JSON object with
// non-empty schemaName and schemaVersion strings.
//
// Both tiers are pure functions of the input bytes and the registered
// definitions: the same document always yields the same [Verdict].
//
// # Versions
//
// Versions are semantic versions. "1.0", "1.0.0" and "v1.0.0" all select the
// same contract; a version that is not a valid semver is an unknown schema.
// An envelope payload without its own schemaVersion is checked against the
// highest registered version of the schema its envelope names.
package schema
