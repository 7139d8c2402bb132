// SPDX-License-Identifier: Apache-2.0

package prescription

import "fmt"

const (
	doctorField = "doctor_name"
	dateField   = "date"

	// A field confidence strictly above this threshold passes its rule.
	ruleConfidenceThreshold = 80
)

// RuleInput is the read-only view a ValidationRule evaluates.
type RuleInput struct {
	Fields      []ExtractedField
	Medications []Medication
}

// Confidence returns the confidence of the named field, 0 if it is not registered.
func (in RuleInput) Confidence(name string) int {
	for _, f := range in.Fields {
		if f.SourceField == name {
			return f.Confidence
		}
	}
	return 0
}

// ValidationRule produces at most one Finding. Evaluate returns false when the
// rule does not apply to the input.
type ValidationRule struct {
	Name     string
	Evaluate func(in RuleInput) (Finding, bool)
}

// DefaultRules returns the standard rule set in evaluation order: doctor,
// date, medication presence, medication recognition. Exactly one of the two
// medication rules applies to any input.
func DefaultRules() []ValidationRule {
	return []ValidationRule{
		{Name: "doctor_identified", Evaluate: doctorRule},
		{Name: "date_present", Evaluate: dateRule},
		{Name: "medications_present", Evaluate: medicationPresenceRule},
		{Name: "medications_recognized", Evaluate: medicationRecognitionRule},
	}
}

func doctorRule(in RuleInput) (Finding, bool) {
	if in.Confidence(doctorField) > ruleConfidenceThreshold {
		return Finding{Kind: FindingSuccess, Message: "Doctor name successfully extracted and verified"}, true
	}
	return Finding{Kind: FindingWarning, Message: "Doctor name could not be clearly identified"}, true
}

func dateRule(in RuleInput) (Finding, bool) {
	if in.Confidence(dateField) > ruleConfidenceThreshold {
		return Finding{Kind: FindingSuccess, Message: "Prescription date is clearly visible and valid"}, true
	}
	return Finding{Kind: FindingError, Message: "Prescription date is unclear or missing"}, true
}

func medicationPresenceRule(in RuleInput) (Finding, bool) {
	if len(in.Medications) > 0 {
		return Finding{}, false
	}
	return Finding{Kind: FindingError, Message: "No medications found in the prescription text"}, true
}

func medicationRecognitionRule(in RuleInput) (Finding, bool) {
	total := len(in.Medications)
	if total == 0 {
		return Finding{}, false
	}
	valid := 0
	for _, m := range in.Medications {
		if m.IsValid {
			valid++
		}
	}
	if valid == total {
		return Finding{Kind: FindingSuccess, Message: "All prescribed medications are recognized and valid"}, true
	}
	return Finding{Kind: FindingWarning, Message: fmt.Sprintf("%d/%d medications recognized", valid, total)}, true
}

func evaluateRules(rules []ValidationRule, in RuleInput) []Finding {
	findings := make([]Finding, 0, len(rules))
	for _, rule := range rules {
		f, ok := rule.Evaluate(in)
		if !ok {
			continue
		}
		f.Rule = rule.Name
		findings = append(findings, f)
	}
	return findings
}
