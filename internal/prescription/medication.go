// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	dosageForms = `(?i:tablets?|tab|capsules?|cap|syrup|injection|inj|cream|drops?)`
	strength    = `\d+(?:\.\d+)?[ \t]*(?i:mcg|mg|ml|g)\b`
	frequency   = `\d[ \t]*-[ \t]*\d[ \t]*-[ \t]*\d\b` +
		`|\d+[ \t]*(?i:times?|x|od|bd|tds|qid)(?:[ \t]*(?i:daily|per[ \t]+day|a[ \t]+day))?` +
		`|(?i:once|twice|thrice|od|bd|tds|qid)\b(?:[ \t]*(?i:daily|a[ \t]+day))?` +
		`|(?i:daily)\b`
	duration = `\d+[ \t]*(?i:days?|weeks?|months?)\b`

	// Capitalised or all-caps.
	medicationName = `[A-Z][A-Za-z]+`
)

var (
	// form? Name strength? frequency? duration?
	reDetailedMedication = regexp.MustCompile(
		`\b(?:(` + dosageForms + `)\.?[ \t]*)?(` + medicationName + `)` +
			`(?:[ \t]+(` + strength + `))?` +
			`(?:[ \t]*[-–]?[ \t]*(` + frequency + `))?` +
			`(?:[ \t]*(?i:for|x)[ \t]*(` + duration + `))?`)

	// form Name strength?
	reFallbackMedication = regexp.MustCompile(
		`\b(` + dosageForms + `)\.?[ \t]*(` + medicationName + `)(?:[ \t]+(` + strength + `))?`)

	reInstruction = regexp.MustCompile(`(?i)\b(?:after|before|with)[ \t]*(?:meals?|food|water|milk)\b`)
)

const (
	minMedicationNameLen = 3

	detailedValidConfidence   = 95
	detailedInvalidConfidence = 70
	fallbackValidConfidence   = 85
	fallbackInvalidConfidence = 60

	defaultFrequency    = "As directed"
	defaultDuration     = "As prescribed"
	defaultInstructions = "Take as directed by physician."
)

// nonMedicationWords are words that commonly precede a duration or schedule
// on a prescription without naming a drug. Keys are lower case.
var nonMedicationWords = map[string]struct{}{
	"valid": {}, "review": {}, "follow": {}, "repeat": {}, "continue": {},
	"take": {}, "next": {}, "visit": {}, "date": {}, "age": {}, "total": {},
}

// extractMedications runs the detailed pass and, only if it found nothing,
// the fallback pass. Entries are in order of appearance; repeated mentions
// of the same drug each produce an entry.
func extractMedications(text string, medicines *MedicineValidator) []Medication {
	meds := detailedPass(text, medicines)
	if len(meds) > 0 {
		return meds
	}
	return fallbackPass(text, medicines)
}

func detailedPass(text string, medicines *MedicineValidator) []Medication {
	meds := []Medication{}
	for _, m := range reDetailedMedication.FindAllStringSubmatchIndex(text, -1) {
		name := group(text, m, 2)
		str, freq, dur := group(text, m, 3), group(text, m, 4), group(text, m, 5)
		if str == "" && freq == "" && dur == "" {
			continue
		}
		if !plausibleName(name) {
			continue
		}
		valid := medicines.IsKnown(name)
		meds = append(meds, Medication{
			Name:         name,
			Form:         group(text, m, 1),
			Strength:     compactSpaces(str),
			Frequency:    orDefault(compactSpaces(freq), defaultFrequency),
			Duration:     orDefault(compactSpaces(dur), defaultDuration),
			Instructions: instructionsNear(text, m[4]),
			Confidence:   pick(valid, detailedValidConfidence, detailedInvalidConfidence),
			IsValid:      valid,
		})
	}
	return meds
}

func fallbackPass(text string, medicines *MedicineValidator) []Medication {
	meds := []Medication{}
	for _, m := range reFallbackMedication.FindAllStringSubmatchIndex(text, -1) {
		name := group(text, m, 2)
		if !plausibleName(name) {
			continue
		}
		valid := medicines.IsKnown(name)
		meds = append(meds, Medication{
			Name:         name,
			Form:         group(text, m, 1),
			Strength:     compactSpaces(group(text, m, 3)),
			Frequency:    defaultFrequency,
			Duration:     defaultDuration,
			Instructions: instructionsNear(text, m[4]),
			Confidence:   pick(valid, fallbackValidConfidence, fallbackInvalidConfidence),
			IsValid:      valid,
		})
	}
	return meds
}

func plausibleName(name string) bool {
	if utf8.RuneCountInString(name) < minMedicationNameLen {
		return false
	}
	_, skip := nonMedicationWords[strings.ToLower(name)]
	return !skip
}

// instructionsNear looks for an intake instruction on the rest of the line
// starting at the medication name.
func instructionsNear(text string, start int) string {
	line := text[start:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if phrase := reInstruction.FindString(line); phrase != "" {
		return strings.ToLower(compactSpaces(phrase))
	}
	return defaultInstructions
}

func group(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return strings.TrimSpace(text[loc[2*n]:loc[2*n+1]])
}

func compactSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
