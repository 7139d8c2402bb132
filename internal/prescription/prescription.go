// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"context"
	"errors"
)

// ErrInvalidInput is wrapped by every error caused by caller-supplied input.
var ErrInvalidInput = errors.New("invalid input")

// FindingKind classifies a validation finding.
type FindingKind string

const (
	FindingSuccess FindingKind = "success"
	FindingWarning FindingKind = "warning"
	FindingError   FindingKind = "error"
)

// ExtractedField is the outcome of applying one FieldSpec to the text.
// Value is nil exactly when Confidence is 0 and RawMatches is empty.
type ExtractedField struct {
	SourceField string   `json:"source_field"`
	Value       *string  `json:"value"`
	Confidence  int      `json:"confidence"`
	RawMatches  []string `json:"raw_matches"`
}

// Found reports whether the field matched.
func (f ExtractedField) Found() bool {
	return f.Value != nil
}

// Medication is one medication mention found in the text.
type Medication struct {
	Name         string `json:"name"`
	Form         string `json:"form,omitempty"`
	Strength     string `json:"strength,omitempty"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
	Confidence   int    `json:"confidence"`
	IsValid      bool   `json:"is_valid"`
}

type Finding struct {
	Kind    FindingKind `json:"type"`
	Rule    string      `json:"rule"`
	Message string      `json:"message"`
}

// Result is the full output of one extraction. Fields are kept in registry order.
type Result struct {
	Fields            []ExtractedField `json:"fields"`
	Medications       []Medication     `json:"medications"`
	Findings          []Finding        `json:"findings"`
	OverallConfidence int              `json:"overall_confidence"`
}

// Field returns the extracted field with the given registry name.
func (r *Result) Field(name string) (ExtractedField, bool) {
	for _, f := range r.Fields {
		if f.SourceField == name {
			return f, true
		}
	}
	return ExtractedField{}, false
}

// HasErrors reports whether any finding is of kind error.
func (r *Result) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Kind == FindingError {
			return true
		}
	}
	return false
}

// MedicineCheck is the outcome of validating a single medicine name.
type MedicineCheck struct {
	Name        string   `json:"medicine_name"`
	IsValid     bool     `json:"is_valid"`
	Confidence  int      `json:"confidence"`
	Suggestions []string `json:"suggestions"`
}

// OCRSource describes the raw OCR payload handed to the pipeline.
type OCRSource struct {
	// Content is the OCR output as delivered by the upstream OCR step.
	Content []byte
	Format  string
	ID      string
}

type TextDecoder interface {
	CanHandle(source OCRSource) bool
	Decode(ctx context.Context, source OCRSource) (string, error)
	Name() string
}
