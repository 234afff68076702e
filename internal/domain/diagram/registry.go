// Diagram type registry. The catalog is embedded into the binary and parsed
// once at startup; the resulting Registry is injected by reference and never
// mutated per-request.
package diagram

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Registry is the immutable catalog of supported diagram types.
type Registry struct {
	types map[string]TypeDefinition
}

type catalogFile struct {
	Types []TypeDefinition `yaml:"types"`
}

// NewRegistry parses the embedded catalog.
func NewRegistry() (*Registry, error) {
	return NewRegistryFromYAML(catalogYAML)
}

// NewRegistryFromYAML parses a catalog document. Exposed for the catalog lint
// tool and for tests that exercise malformed catalogs.
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: parse catalog: %w", err)
	}
	if len(file.Types) == 0 {
		return nil, fmt.Errorf("registry: catalog declares no diagram types")
	}

	types := make(map[string]TypeDefinition, len(file.Types))
	for _, def := range file.Types {
		if def.ID == "" {
			return nil, fmt.Errorf("registry: catalog entry with empty id")
		}
		if _, dup := types[def.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate diagram type %q", def.ID)
		}
		if len(def.Keywords) == 0 {
			return nil, fmt.Errorf("registry: diagram type %q has no keywords", def.ID)
		}
		if def.Declaration == "" {
			return nil, fmt.Errorf("registry: diagram type %q has no declaration", def.ID)
		}
		types[def.ID] = def
	}

	return &Registry{types: types}, nil
}

// Lookup returns the definition for a diagram type id.
func (r *Registry) Lookup(id string) (TypeDefinition, error) {
	def, ok := r.types[id]
	if !ok {
		return TypeDefinition{}, fmt.Errorf("registry: unknown diagram type %q", id)
	}
	return def, nil
}

// IDs returns the supported type ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
