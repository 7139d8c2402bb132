// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"fmt"
	"strings"
)

const (
	maxSuggestions      = 5
	suggestionPrefixLen = 3

	knownMedicineConfidence   = 95
	unknownMedicineConfidence = 30
)

// MedicineValidator matches candidate names against a known-medicine list.
//
// Matching is a case-insensitive substring test in either direction, so a
// partial OCR read such as "Paracetam" is accepted as "Paracetamol". The same
// looseness accepts short fragments that happen to occur inside a known
// name; callers drop names under three characters before validating.
type MedicineValidator struct {
	names []string
	lower []string
}

func NewMedicineValidator(names ...string) *MedicineValidator {
	v := &MedicineValidator{
		names: make([]string, 0, len(names)),
		lower: make([]string, 0, len(names)),
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		v.names = append(v.names, n)
		v.lower = append(v.lower, strings.ToLower(n))
	}
	return v
}

// Names returns a copy of the reference list.
func (v *MedicineValidator) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// IsKnown reports whether name matches a known medicine.
func (v *MedicineValidator) IsKnown(name string) bool {
	candidate := strings.ToLower(strings.TrimSpace(name))
	if candidate == "" {
		return false
	}
	for _, known := range v.lower {
		if strings.Contains(candidate, known) || strings.Contains(known, candidate) {
			return true
		}
	}
	return false
}

// Suggest returns up to limit known names containing the first three
// characters of name, in reference-list order.
func (v *MedicineValidator) Suggest(name string, limit int) []string {
	prefix := []rune(strings.ToLower(strings.TrimSpace(name)))
	if len(prefix) > suggestionPrefixLen {
		prefix = prefix[:suggestionPrefixLen]
	}
	out := []string{}
	if len(prefix) == 0 || limit <= 0 {
		return out
	}
	for i, known := range v.lower {
		if strings.Contains(known, string(prefix)) {
			out = append(out, v.names[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Check validates a single medicine name.
func (v *MedicineValidator) Check(name string) (MedicineCheck, error) {
	if strings.TrimSpace(name) == "" {
		return MedicineCheck{}, fmt.Errorf("%w: medicine name is required", ErrInvalidInput)
	}
	check := MedicineCheck{Name: name, Suggestions: []string{}}
	if v.IsKnown(name) {
		check.IsValid = true
		check.Confidence = knownMedicineConfidence
		return check, nil
	}
	check.Confidence = unknownMedicineConfidence
	check.Suggestions = v.Suggest(name, maxSuggestions)
	return check, nil
}
