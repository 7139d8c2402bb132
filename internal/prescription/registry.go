// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"fmt"
	"regexp"
)

// minFieldWeight keeps every matched field above zero confidence even at the
// lowest quality multiplier.
const minFieldWeight = 0.05

// FieldSpec describes how one named field is located in OCR text.
type FieldSpec struct {
	Name    string
	Pattern *regexp.Regexp
	// Weight is the baseline confidence in [0.05, 1] before the quality multiplier.
	Weight float64
	// Clean, when set, is stripped from the start of the first match.
	Clean *regexp.Regexp
}

// Registry is an ordered, immutable set of FieldSpecs.
type Registry struct {
	specs []FieldSpec
	index map[string]int
}

// NewRegistry builds a Registry preserving the order of specs.
func NewRegistry(specs ...FieldSpec) (*Registry, error) {
	r := &Registry{
		specs: make([]FieldSpec, 0, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("field spec without a name")
		}
		if s.Pattern == nil {
			return nil, fmt.Errorf("field %q: pattern is required", s.Name)
		}
		if s.Weight < minFieldWeight || s.Weight > 1 {
			return nil, fmt.Errorf("field %q: weight %v outside [%v, 1]", s.Name, s.Weight, minFieldWeight)
		}
		if _, dup := r.index[s.Name]; dup {
			return nil, fmt.Errorf("field %q registered twice", s.Name)
		}
		r.index[s.Name] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

func (r *Registry) Len() int {
	return len(r.specs)
}

// Specs returns a copy of the registered specs in registry order.
func (r *Registry) Specs() []FieldSpec {
	out := make([]FieldSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (FieldSpec, bool) {
	i, ok := r.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return r.specs[i], true
}
