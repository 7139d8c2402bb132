// SPDX-License-Identifier: Apache-2.0

package prescription_test

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

const samplePrescription = "City Care Clinic\n" +
	"Dr. Jane Smith\n" +
	"Reg No: AB12345\n" +
	"Patient: John Doe\n" +
	"Date: 12/05/2024\n" +
	"Tab. Paracetamol 500mg 3 times daily for 5 days after meals\n"

const multiMedicationPrescription = "Dr. Ravi Kumar\n" +
	"Date: 01/02/2024\n" +
	"Tab Amoxicillin 500mg twice daily for 7 days\n" +
	"Tab Zentrofen 10mg 1-0-1 x 2 weeks before food\n" +
	"Syrup Cetirizine 5ml once daily\n" +
	"Valid for 30 days"

const noMedicationText = "Patient John came in for a general checkup today without any issues at all"

func newDefaultEngine(t *testing.T, opts ...prescription.Option) *prescription.Engine {
	t.Helper()
	catalog, err := prescription.DefaultCatalog()
	require.NoError(t, err)
	engine, err := prescription.NewEngineFromCatalog(catalog, opts...)
	require.NoError(t, err)
	return engine
}

func fieldValue(t *testing.T, result *prescription.Result, name string) prescription.ExtractedField {
	t.Helper()
	f, ok := result.Field(name)
	require.True(t, ok, "field %q missing from result", name)
	return f
}

// ---------------------------------------------------------------------------
// Engine.Extract
// ---------------------------------------------------------------------------

func TestEngine_Extract_SamplePrescription(t *testing.T) {
	result, err := newDefaultEngine(t).Extract(samplePrescription)
	require.NoError(t, err)

	tests := []struct {
		field     string
		wantValue string
		wantConf  int
		wantCount int
	}{
		{field: "doctor_name", wantValue: "Jane Smith", wantConf: 85, wantCount: 1},
		{field: "registration_number", wantValue: "AB12345", wantConf: 85, wantCount: 1},
		{field: "patient_name", wantValue: "John Doe", wantConf: 70, wantCount: 1},
		{field: "medicine_name", wantValue: "Paracetamol 500mg", wantConf: 90, wantCount: 1},
		{field: "dosage", wantValue: "500mg", wantConf: 85, wantCount: 1},
		{field: "frequency", wantValue: "3 times daily", wantConf: 80, wantCount: 1},
		{field: "duration", wantValue: "5 days", wantConf: 75, wantCount: 1},
		{field: "date", wantValue: "12/05/2024", wantConf: 90, wantCount: 1},
		{field: "hospital_name", wantValue: "City Care Clinic", wantConf: 75, wantCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := fieldValue(t, result, tt.field)
			require.True(t, f.Found())
			assert.Equal(t, tt.wantValue, *f.Value)
			assert.Equal(t, tt.wantConf, f.Confidence)
			assert.Len(t, f.RawMatches, tt.wantCount)
		})
	}

	for _, name := range []string{"specialization", "patient_age", "patient_gender", "instructions", "valid_until", "diagnosis", "address"} {
		f := fieldValue(t, result, name)
		assert.False(t, f.Found(), "field %q should be absent", name)
		assert.Zero(t, f.Confidence)
		assert.Empty(t, f.RawMatches)
	}

	require.Len(t, result.Medications, 1)
	med := result.Medications[0]
	assert.Equal(t, "Paracetamol", med.Name)
	assert.Equal(t, "Tab", med.Form)
	assert.Equal(t, "500mg", med.Strength)
	assert.Equal(t, "3 times daily", med.Frequency)
	assert.Equal(t, "5 days", med.Duration)
	assert.Equal(t, "after meals", med.Instructions)
	assert.GreaterOrEqual(t, med.Confidence, 90)
	assert.True(t, med.IsValid)

	require.Len(t, result.Findings, 3)
	assert.Equal(t, prescription.FindingSuccess, result.Findings[0].Kind)
	assert.Equal(t, "doctor_identified", result.Findings[0].Rule)
	assert.Equal(t, prescription.FindingSuccess, result.Findings[1].Kind)
	assert.Equal(t, "date_present", result.Findings[1].Rule)
	assert.Equal(t, prescription.FindingSuccess, result.Findings[2].Kind)
	assert.Equal(t, "All prescribed medications are recognized and valid", result.Findings[2].Message)
	assert.False(t, result.HasErrors())

	// (85+85+70+90+85+80+75+90+75) / 16 fields
	assert.Equal(t, 46, result.OverallConfidence)
}

func TestEngine_Extract_FieldOrderFollowsRegistry(t *testing.T) {
	engine := newDefaultEngine(t)
	result, err := engine.Extract(samplePrescription)
	require.NoError(t, err)

	got := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		got[i] = f.SourceField
	}
	assert.Equal(t, engine.Registry().Names(), got)
}

func TestEngine_Extract_UpperCaseText(t *testing.T) {
	engine := newDefaultEngine(t)

	tests := []struct {
		name       string
		text       string
		wantDoctor string
		wantMeds   []prescription.Medication
		wantFields map[string]string
	}{
		{
			name:       "detailed line",
			text:       "DR. JANE SMITH\nREG NO: AB12345\nDATE: 12/05/2024\nTAB. PARACETAMOL 500MG TDS X 5 DAYS\n",
			wantDoctor: "JANE SMITH",
			wantMeds: []prescription.Medication{{
				Name: "PARACETAMOL", Form: "TAB", Strength: "500MG", Frequency: "TDS", Duration: "5 DAYS",
				Instructions: "Take as directed by physician.", Confidence: 95, IsValid: true,
			}},
			wantFields: map[string]string{"medicine_name": "PARACETAMOL 500MG", "registration_number": "AB12345"},
		},
		{
			name:       "full header and stopword line",
			text:       "CITY CARE CLINIC\nDR. JANE SMITH\nPATIENT: JOHN DOE\nDATE: 12/05/2024\nTAB. PARACETAMOL 500MG TDS X 5 DAYS AFTER MEALS\nVALID FOR 30 DAYS\n",
			wantDoctor: "JANE SMITH",
			wantMeds: []prescription.Medication{{
				Name: "PARACETAMOL", Form: "TAB", Strength: "500MG", Frequency: "TDS", Duration: "5 DAYS",
				Instructions: "after meals", Confidence: 95, IsValid: true,
			}},
			wantFields: map[string]string{"patient_name": "JOHN DOE", "hospital_name": "CITY CARE CLINIC"},
		},
		{
			name:       "fallback pass",
			text:       "DR JANE SMITH\nTAB. PARACETAMOL\nCAP UNKNOWNIUM\n",
			wantDoctor: "JANE SMITH",
			wantMeds: []prescription.Medication{
				{Name: "PARACETAMOL", Form: "TAB", Frequency: "As directed", Duration: "As prescribed", Instructions: "Take as directed by physician.", Confidence: 85, IsValid: true},
				{Name: "UNKNOWNIUM", Form: "CAP", Frequency: "As directed", Duration: "As prescribed", Instructions: "Take as directed by physician.", Confidence: 60},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Extract(tt.text)
			require.NoError(t, err)

			doctor := fieldValue(t, result, "doctor_name")
			require.True(t, doctor.Found())
			assert.Equal(t, tt.wantDoctor, *doctor.Value)
			assert.Equal(t, tt.wantMeds, result.Medications)
			for name, want := range tt.wantFields {
				f := fieldValue(t, result, name)
				require.True(t, f.Found(), name)
				assert.Equal(t, want, *f.Value, name)
			}
		})
	}
}

func TestEngine_Extract_NoMedications(t *testing.T) {
	result, err := newDefaultEngine(t).Extract(noMedicationText)
	require.NoError(t, err)

	assert.Empty(t, result.Medications)
	assert.NotNil(t, result.Medications)

	var noMeds []prescription.Finding
	for _, f := range result.Findings {
		if strings.HasPrefix(f.Message, "No medications found") {
			noMeds = append(noMeds, f)
		}
	}
	require.Len(t, noMeds, 1)
	assert.Equal(t, prescription.FindingError, noMeds[0].Kind)

	require.Len(t, result.Findings, 3)
	assert.Equal(t, prescription.FindingWarning, result.Findings[0].Kind)
	assert.Equal(t, prescription.FindingError, result.Findings[1].Kind)
	assert.True(t, result.HasErrors())
}

func TestEngine_Extract_MultipleMedications(t *testing.T) {
	result, err := newDefaultEngine(t).Extract(multiMedicationPrescription)
	require.NoError(t, err)

	require.Len(t, result.Medications, 3)

	assert.Equal(t, "Amoxicillin", result.Medications[0].Name)
	assert.Equal(t, "twice daily", result.Medications[0].Frequency)
	assert.Equal(t, "7 days", result.Medications[0].Duration)
	assert.Equal(t, "Take as directed by physician.", result.Medications[0].Instructions)
	assert.Equal(t, 95, result.Medications[0].Confidence)

	assert.Equal(t, "Zentrofen", result.Medications[1].Name)
	assert.Equal(t, "1-0-1", result.Medications[1].Frequency)
	assert.Equal(t, "2 weeks", result.Medications[1].Duration)
	assert.Equal(t, "before food", result.Medications[1].Instructions)
	assert.Equal(t, 70, result.Medications[1].Confidence)
	assert.False(t, result.Medications[1].IsValid)

	assert.Equal(t, "Cetirizine", result.Medications[2].Name)
	assert.Equal(t, "Syrup", result.Medications[2].Form)
	assert.Equal(t, "once daily", result.Medications[2].Frequency)
	assert.Equal(t, "As prescribed", result.Medications[2].Duration)

	last := result.Findings[len(result.Findings)-1]
	assert.Equal(t, prescription.FindingWarning, last.Kind)
	assert.Equal(t, "2/3 medications recognized", last.Message)
	assert.Equal(t, "medications_recognized", last.Rule)
}

func TestEngine_Extract_FallbackPass(t *testing.T) {
	text := "Rx\nTab. Paracetamol\nCap Unknownium\nPlease follow up next week at the clinic"
	result, err := newDefaultEngine(t).Extract(text)
	require.NoError(t, err)

	require.Len(t, result.Medications, 2)
	assert.Equal(t, prescription.Medication{
		Name:         "Paracetamol",
		Form:         "Tab",
		Frequency:    "As directed",
		Duration:     "As prescribed",
		Instructions: "Take as directed by physician.",
		Confidence:   85,
		IsValid:      true,
	}, result.Medications[0])
	assert.Equal(t, "Unknownium", result.Medications[1].Name)
	assert.Equal(t, 60, result.Medications[1].Confidence)
	assert.False(t, result.Medications[1].IsValid)
}

func TestEngine_Extract_DuplicateMentionsAreKept(t *testing.T) {
	text := "Tab Paracetamol 500mg twice daily\nTab Paracetamol 500mg at night if fever persists"
	result, err := newDefaultEngine(t).Extract(text)
	require.NoError(t, err)

	require.Len(t, result.Medications, 2)
	assert.Equal(t, result.Medications[0].Name, result.Medications[1].Name)
	assert.Equal(t, "As directed", result.Medications[1].Frequency)
}

func TestEngine_Extract_ShortNamesDiscarded(t *testing.T) {
	result, err := newDefaultEngine(t).Extract("Tab Xy 10mg twice daily and nothing else written here at all")
	require.NoError(t, err)
	assert.Empty(t, result.Medications)
}

func TestEngine_Extract_EmptyInput(t *testing.T) {
	engine := newDefaultEngine(t)
	for _, text := range []string{"", "   ", "\n\t\n"} {
		result, err := engine.Extract(text)
		require.Error(t, err)
		assert.ErrorIs(t, err, prescription.ErrInvalidInput)
		assert.Nil(t, result)
	}
}

func TestEngine_Extract_Deterministic(t *testing.T) {
	engine := newDefaultEngine(t)
	for _, text := range []string{samplePrescription, multiMedicationPrescription, noMedicationText} {
		first, err := engine.Extract(text)
		require.NoError(t, err)
		second, err := engine.Extract(text)
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestEngine_Extract_WorkersMatchSequential(t *testing.T) {
	sequential := newDefaultEngine(t)
	parallel := newDefaultEngine(t, prescription.WithWorkers(8))

	for _, text := range []string{samplePrescription, multiMedicationPrescription} {
		want, err := sequential.Extract(text)
		require.NoError(t, err)
		got, err := parallel.Extract(text)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEngine_Extract_ConfidenceInvariants(t *testing.T) {
	engine := newDefaultEngine(t)
	inputs := []string{
		samplePrescription,
		multiMedicationPrescription,
		noMedicationText,
		"x",
		"%%%% ### @@@ !!!",
		strings.Repeat("prescription doctor patient medicine dosage mg tablet ", 20),
	}
	for _, text := range inputs {
		result, err := engine.Extract(text)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.OverallConfidence, 0)
		assert.LessOrEqual(t, result.OverallConfidence, 100)
		for _, f := range result.Fields {
			assert.GreaterOrEqual(t, f.Confidence, 0)
			assert.LessOrEqual(t, f.Confidence, 100)
			assert.Equal(t, f.Value == nil, f.Confidence == 0, "field %s", f.SourceField)
			assert.Equal(t, f.Value == nil, len(f.RawMatches) == 0, "field %s", f.SourceField)
			assert.NotNil(t, f.RawMatches)
		}
	}
}

func TestEngine_Extract_NoisePenalty(t *testing.T) {
	engine := newDefaultEngine(t)
	noisy := samplePrescription + strings.Repeat("@", 64) + "\n"

	clean, err := engine.Extract(samplePrescription)
	require.NoError(t, err)
	dirty, err := engine.Extract(noisy)
	require.NoError(t, err)

	require.Len(t, dirty.Fields, len(clean.Fields))
	for i := range clean.Fields {
		assert.LessOrEqual(t, dirty.Fields[i].Confidence, clean.Fields[i].Confidence, "field %s", clean.Fields[i].SourceField)
	}
	assert.Equal(t, 75, fieldValue(t, dirty, "doctor_name").Confidence)
	assert.Less(t, dirty.OverallConfidence, clean.OverallConfidence)
	// doctor confidence falls to 75, below the rule threshold
	assert.Equal(t, prescription.FindingWarning, dirty.Findings[0].Kind)
}

// ---------------------------------------------------------------------------
// Aggregation with a custom registry
// ---------------------------------------------------------------------------

func TestEngine_OverallConfidence(t *testing.T) {
	const filler = " and some more filler words to make this text long enough"

	tests := []struct {
		name  string
		specs []prescription.FieldSpec
		text  string
		want  int
	}{
		{
			name: "unmatched fields count as zero",
			specs: []prescription.FieldSpec{
				{Name: "alpha", Pattern: regexp.MustCompile(`alpha\d+`), Weight: 0.9},
				{Name: "beta", Pattern: regexp.MustCompile(`beta\d+`), Weight: 0.5},
			},
			text: "alpha1" + filler,
			want: 45,
		},
		{
			name: "half rounds away from zero",
			specs: []prescription.FieldSpec{
				{Name: "alpha", Pattern: regexp.MustCompile(`alpha\d+`), Weight: 0.85},
				{Name: "beta", Pattern: regexp.MustCompile(`beta\d+`), Weight: 0.70},
			},
			text: "alpha1 beta2" + filler,
			want: 78,
		},
		{
			name:  "empty registry",
			specs: nil,
			text:  "alpha1" + filler,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := prescription.NewRegistry(tt.specs...)
			require.NoError(t, err)
			engine, err := prescription.NewEngine(registry, prescription.NewMedicineValidator("Paracetamol"))
			require.NoError(t, err)

			result, err := engine.Extract(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.OverallConfidence)
		})
	}
}

func TestEngine_CleanRule(t *testing.T) {
	registry, err := prescription.NewRegistry(
		prescription.FieldSpec{
			Name:    "label",
			Pattern: regexp.MustCompile(`Label:[ \t]*\S*`),
			Weight:  0.5,
			Clean:   regexp.MustCompile(`^Label:[ \t]*`),
		},
	)
	require.NoError(t, err)
	engine, err := prescription.NewEngine(registry, prescription.NewMedicineValidator())
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "label stripped", text: "Label: value and a second Label: other", want: "value"},
		{name: "cleaning to empty keeps raw match", text: "Label:", want: "Label:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Extract(tt.text)
			require.NoError(t, err)
			f := fieldValue(t, result, "label")
			require.True(t, f.Found())
			assert.Equal(t, tt.want, *f.Value)
		})
	}
}

func TestEngine_WithRules(t *testing.T) {
	registry, err := prescription.NewRegistry()
	require.NoError(t, err)
	custom := prescription.ValidationRule{
		Name: "always",
		Evaluate: func(in prescription.RuleInput) (prescription.Finding, bool) {
			return prescription.Finding{Kind: prescription.FindingSuccess, Message: "ok"}, true
		},
	}
	engine, err := prescription.NewEngine(registry, prescription.NewMedicineValidator(), prescription.WithRules(custom))
	require.NoError(t, err)

	result, err := engine.Extract("anything at all")
	require.NoError(t, err)
	assert.Equal(t, []prescription.Finding{{Kind: prescription.FindingSuccess, Rule: "always", Message: "ok"}}, result.Findings)
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	registry, err := prescription.NewRegistry()
	require.NoError(t, err)

	_, err = prescription.NewEngine(nil, prescription.NewMedicineValidator())
	assert.Error(t, err)
	_, err = prescription.NewEngine(registry, nil)
	assert.Error(t, err)
}

func TestEngine_Fingerprint(t *testing.T) {
	base := newDefaultEngine(t)
	assert.Len(t, base.Fingerprint(), 64)
	assert.Equal(t, base.Fingerprint(), newDefaultEngine(t, prescription.WithWorkers(4)).Fingerprint())

	extended, err := prescription.DefaultCatalog()
	require.NoError(t, err)
	extended.Medicines = append(extended.Medicines, "Zentrofen")
	moreMedicines, err := prescription.NewEngineFromCatalog(extended)
	require.NoError(t, err)

	reweighted, err := prescription.DefaultCatalog()
	require.NoError(t, err)
	reweighted.Fields[0].Weight = 0.9
	otherWeights, err := prescription.NewEngineFromCatalog(reweighted)
	require.NoError(t, err)

	customRules := newDefaultEngine(t, prescription.WithRules(prescription.DefaultRules()[:2]...))

	for name, other := range map[string]*prescription.Engine{
		"medicine added": moreMedicines,
		"weight changed": otherWeights,
		"rules changed":  customRules,
	} {
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint(), name)
	}
}

// ---------------------------------------------------------------------------
// Engine.ValidateMedicine
// ---------------------------------------------------------------------------

func TestEngine_ValidateMedicine(t *testing.T) {
	engine := newDefaultEngine(t)

	check, err := engine.ValidateMedicine("Paracetamol")
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, 95, check.Confidence)
	assert.Equal(t, []string{}, check.Suggestions)

	check, err = engine.ValidateMedicine("Xyzzynotadrug")
	require.NoError(t, err)
	assert.False(t, check.IsValid)
	assert.Equal(t, 30, check.Confidence)
	assert.LessOrEqual(t, len(check.Suggestions), 5)
	for _, s := range check.Suggestions {
		assert.Contains(t, strings.ToLower(s), "xyz")
	}

	_, err = engine.ValidateMedicine("")
	assert.ErrorIs(t, err, prescription.ErrInvalidInput)
}
