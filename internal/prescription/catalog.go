// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/goccy/go-yaml"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

//go:embed catalog.cue
var catalogSchema string

// FieldRule is the serialised form of a FieldSpec.
type FieldRule struct {
	Name    string  `yaml:"name" json:"name"`
	Pattern string  `yaml:"pattern" json:"pattern"`
	Weight  float64 `yaml:"weight" json:"weight"`
	Clean   string  `yaml:"clean,omitempty" json:"clean,omitempty"`
}

// Catalog is the configuration data the engine is built from: the field
// registry and the known-medicine reference list.
type Catalog struct {
	Fields    []FieldRule `yaml:"fields" json:"fields"`
	Medicines []string    `yaml:"medicines" json:"medicines"`
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog and checks it against the catalog schema.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog shape. Pattern syntax is checked by Build.
func (c *Catalog) Validate() error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(catalogSchema, cue.Filename("catalog.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(cctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}

// Build compiles the catalog into the immutable structures the Engine uses.
func (c *Catalog) Build() (*Registry, *MedicineValidator, error) {
	specs := make([]FieldSpec, 0, len(c.Fields))
	for _, f := range c.Fields {
		pattern, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: invalid pattern: %w", f.Name, err)
		}
		spec := FieldSpec{Name: f.Name, Pattern: pattern, Weight: f.Weight}
		if f.Clean != "" {
			if spec.Clean, err = regexp.Compile(f.Clean); err != nil {
				return nil, nil, fmt.Errorf("field %q: invalid clean pattern: %w", f.Name, err)
			}
		}
		specs = append(specs, spec)
	}

	registry, err := NewRegistry(specs...)
	if err != nil {
		return nil, nil, err
	}
	return registry, NewMedicineValidator(c.Medicines...), nil
}
