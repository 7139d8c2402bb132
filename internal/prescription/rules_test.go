// SPDX-License-Identifier: Apache-2.0

package prescription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

func evaluate(in prescription.RuleInput) []prescription.Finding {
	var out []prescription.Finding
	for _, rule := range prescription.DefaultRules() {
		if f, ok := rule.Evaluate(in); ok {
			f.Rule = rule.Name
			out = append(out, f)
		}
	}
	return out
}

func TestDefaultRules(t *testing.T) {
	fields := func(doctor, date int) []prescription.ExtractedField {
		return []prescription.ExtractedField{
			{SourceField: "doctor_name", Confidence: doctor},
			{SourceField: "date", Confidence: date},
		}
	}
	valid := prescription.Medication{Name: "Paracetamol", IsValid: true}
	invalid := prescription.Medication{Name: "Zentrofen"}

	tests := []struct {
		name      string
		in        prescription.RuleInput
		wantKinds []prescription.FindingKind
		wantLast  string
	}{
		{
			name:      "everything passes",
			in:        prescription.RuleInput{Fields: fields(85, 90), Medications: []prescription.Medication{valid}},
			wantKinds: []prescription.FindingKind{prescription.FindingSuccess, prescription.FindingSuccess, prescription.FindingSuccess},
			wantLast:  "All prescribed medications are recognized and valid",
		},
		{
			name:      "threshold is exclusive",
			in:        prescription.RuleInput{Fields: fields(80, 80), Medications: []prescription.Medication{valid}},
			wantKinds: []prescription.FindingKind{prescription.FindingWarning, prescription.FindingError, prescription.FindingSuccess},
			wantLast:  "All prescribed medications are recognized and valid",
		},
		{
			name:      "no medications",
			in:        prescription.RuleInput{Fields: fields(85, 90)},
			wantKinds: []prescription.FindingKind{prescription.FindingSuccess, prescription.FindingSuccess, prescription.FindingError},
			wantLast:  "No medications found in the prescription text",
		},
		{
			name:      "partially recognised",
			in:        prescription.RuleInput{Fields: fields(85, 90), Medications: []prescription.Medication{valid, invalid, invalid}},
			wantKinds: []prescription.FindingKind{prescription.FindingSuccess, prescription.FindingSuccess, prescription.FindingWarning},
			wantLast:  "1/3 medications recognized",
		},
		{
			name:      "fields not registered",
			in:        prescription.RuleInput{Medications: []prescription.Medication{invalid}},
			wantKinds: []prescription.FindingKind{prescription.FindingWarning, prescription.FindingError, prescription.FindingWarning},
			wantLast:  "0/1 medications recognized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := evaluate(tt.in)
			kinds := make([]prescription.FindingKind, len(findings))
			for i, f := range findings {
				kinds[i] = f.Kind
			}
			assert.Equal(t, tt.wantKinds, kinds)
			assert.Equal(t, tt.wantLast, findings[len(findings)-1].Message)
			assert.Equal(t, "doctor_identified", findings[0].Rule)
			assert.Equal(t, "date_present", findings[1].Rule)
		})
	}
}

func TestRuleInput_Confidence(t *testing.T) {
	in := prescription.RuleInput{Fields: []prescription.ExtractedField{{SourceField: "date", Confidence: 72}}}
	assert.Equal(t, 72, in.Confidence("date"))
	assert.Equal(t, 0, in.Confidence("doctor_name"))
}
