package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseDefinitionYAML decodes one or more definitions from a YAML stream.
// Multiple definitions are separated by "---" document markers.
func ParseDefinitionYAML(data []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("schema: definition payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var defs []Definition
	for {
		var def Definition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("schema: decode definition %d: %w", len(defs)+1, err)
		}
		norm, err := def.Normalized()
		if err != nil {
			return nil, err
		}
		defs = append(defs, norm)
	}
	return defs, nil
}

// LoadFile reads the definitions in a single YAML file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	defs, err := ParseDefinitionYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadDir reads every *.yaml and *.yml file in dir (not recursive) into a new
// registry. Files are read in name order; a name and version defined twice
// is an error.
func LoadDir(dir string) (*Registry, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("schema: definitions directory is empty")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schema: read dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	reg := NewRegistry()
	for _, path := range paths {
		defs, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if err := reg.Register(def); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return reg, nil
}
