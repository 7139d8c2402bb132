// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Engine turns OCR text into a Result. It holds only immutable configuration,
// so a single Engine may be shared by concurrent callers.
type Engine struct {
	registry  *Registry
	medicines *MedicineValidator
	rules     []ValidationRule
	workers   int

	fingerprint string
}

type Option func(*Engine)

// WithWorkers bounds the number of fields extracted concurrently. Values
// below 2 extract sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...ValidationRule) Option {
	return func(e *Engine) {
		e.rules = append([]ValidationRule(nil), rules...)
	}
}

func NewEngine(registry *Registry, medicines *MedicineValidator, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("engine requires a field registry")
	}
	if medicines == nil {
		return nil, errors.New("engine requires a medicine validator")
	}
	e := &Engine{
		registry:  registry,
		medicines: medicines,
		rules:     DefaultRules(),
		workers:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fingerprint = e.computeFingerprint()
	return e, nil
}

// NewEngineFromCatalog builds the registry and medicine list from c.
func NewEngineFromCatalog(c *Catalog, opts ...Option) (*Engine, error) {
	registry, medicines, err := c.Build()
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return NewEngine(registry, medicines, opts...)
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) Medicines() *MedicineValidator {
	return e.medicines
}

// Fingerprint identifies the configuration that shapes results: field
// patterns, weights, cleaning rules, the known-medicine list and the rule
// names. Engines built from the same catalog share a fingerprint.
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

func (e *Engine) computeFingerprint() string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
		h.Write([]byte{'\n'})
	}
	for _, spec := range e.registry.Specs() {
		clean := ""
		if spec.Clean != nil {
			clean = spec.Clean.String()
		}
		write("field", spec.Name, spec.Pattern.String(), strconv.FormatFloat(spec.Weight, 'g', -1, 64), clean)
	}
	write(append([]string{"medicines"}, e.medicines.Names()...)...)
	for _, rule := range e.rules {
		write("rule", rule.Name)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Extract runs the full extraction over text. The only error it returns is
// one wrapping ErrInvalidInput for empty text; poor or missing data is
// reported through confidences and findings.
func (e *Engine) Extract(text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	quality := AssessQuality(text)
	fields := extractFields(e.registry, text, quality, e.workers)
	meds := extractMedications(text, e.medicines)
	findings := evaluateRules(e.rules, RuleInput{Fields: fields, Medications: meds})

	return &Result{
		Fields:            fields,
		Medications:       meds,
		Findings:          findings,
		OverallConfidence: overallConfidence(fields),
	}, nil
}

// ValidateMedicine checks a single medicine name against the reference list.
func (e *Engine) ValidateMedicine(name string) (MedicineCheck, error) {
	return e.medicines.Check(name)
}

// overallConfidence is the rounded mean over every field, unmatched fields
// counting as 0.
func overallConfidence(fields []ExtractedField) int {
	if len(fields) == 0 {
		return 0
	}
	sum := 0
	for _, f := range fields {
		sum += f.Confidence
	}
	return clampPercent(int(math.Round(float64(sum) / float64(len(fields)))))
}
