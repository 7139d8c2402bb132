// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// extractFields applies every field pattern to text. The returned slice is in
// registry order regardless of how many workers ran.
func extractFields(registry *Registry, text string, quality float64, workers int) []ExtractedField {
	specs := registry.specs
	out := make([]ExtractedField, len(specs))

	if workers <= 1 || len(specs) < 2 {
		for i, spec := range specs {
			out[i] = extractField(spec, text, quality)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, spec := range specs {
		g.Go(func() error {
			out[i] = extractField(spec, text, quality)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func extractField(spec FieldSpec, text string, quality float64) ExtractedField {
	matches := spec.Pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ExtractedField{SourceField: spec.Name, RawMatches: []string{}}
	}

	value := cleanValue(spec, matches[0])
	return ExtractedField{
		SourceField: spec.Name,
		Value:       &value,
		Confidence:  fieldConfidence(spec.Weight, quality),
		RawMatches:  matches,
	}
}

func cleanValue(spec FieldSpec, match string) string {
	raw := strings.TrimSpace(match)
	if spec.Clean == nil {
		return raw
	}
	cleaned := strings.TrimSpace(spec.Clean.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return raw
	}
	return cleaned
}

func fieldConfidence(weight, quality float64) int {
	return clampPercent(int(math.Round(weight * 100 * quality)))
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
