package schema

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Source is a pluggable set of definitions queried by name and canonical
// version. A nil Source selects light-tier validation.
type Source interface {
	// Lookup returns the definition registered for name at a canonical version.
	Lookup(name, version string) (Definition, bool)
	// Versions returns the canonical versions registered for name.
	Versions(name string) []string
}

// Registry is an in-memory Source. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]map[string]Definition)}
}

// Register normalizes def and adds it. Registering the same name and version
// twice is an error.
func (r *Registry) Register(def Definition) error {
	def, err := def.Normalized()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.defs[def.Name]
	if !ok {
		versions = make(map[string]Definition)
		r.defs[def.Name] = versions
	}
	if _, dup := versions[def.Version]; dup {
		return fmt.Errorf("schema: %s is already registered", def.ID())
	}
	versions[def.Version] = def
	return nil
}

// Lookup implements Source.
func (r *Registry) Lookup(name, version string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name][version]
	return def, ok
}

// Versions implements Source. Versions are sorted ascending.
func (r *Registry) Versions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs[name]))
	for v := range r.defs[name] {
		out = append(out, v)
	}
	slices.SortFunc(out, compareVersions)
	return out
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every registered definition ordered by name then version.
func (r *Registry) Definitions() []Definition {
	var out []Definition
	for _, name := range r.Names() {
		for _, v := range r.Versions(name) {
			def, _ := r.Lookup(name, v)
			out = append(out, def)
		}
	}
	return out
}

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtinDefs []Definition
)

// Builtin returns a new registry holding the contracts of the default
// channels: CommandBatch, GameStateSnapshot and HandoffEnvelope, each at
// 1.0.0.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		defs, err := ParseDefinitionYAML(builtinYAML)
		if err != nil {
			panic(fmt.Sprintf("schema: built-in definitions are invalid: %v", err))
		}
		builtinDefs = defs
	})
	r := NewRegistry()
	for _, def := range builtinDefs {
		// Parsed definitions are already normalized and unique.
		_ = r.Register(def)
	}
	return r
}

type chain []Source

// Chain combines sources. Lookups return the first match in order, so
// earlier sources override later ones for the same name and version.
// Nil sources are skipped; chaining nothing yields nil (light tier).
func Chain(sources ...Source) Source {
	var c chain
	for _, s := range sources {
		if s != nil {
			c = append(c, s)
		}
	}
	switch len(c) {
	case 0:
		return nil
	case 1:
		return c[0]
	default:
		return c
	}
}

func (c chain) Lookup(name, version string) (Definition, bool) {
	for _, s := range c {
		if def, ok := s.Lookup(name, version); ok {
			return def, true
		}
	}
	return Definition{}, false
}

func (c chain) Versions(name string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c {
		for _, v := range s.Versions(name) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	slices.SortFunc(out, compareVersions)
	return out
}

// latestVersion returns the highest version src has for name.
func latestVersion(src Source, name string) (string, bool) {
	versions := src.Versions(name)
	if len(versions) == 0 {
		return "", false
	}
	return slices.MaxFunc(versions, compareVersions), true
}
