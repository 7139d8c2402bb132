// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes prometheus instruments for extraction traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rxverify"

// Outcome labels for Metrics.ObserveExtraction.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid_input"
	OutcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	extractions       *prometheus.CounterVec
	overallConfidence prometheus.Histogram
	medicationsFound  prometheus.Histogram
	findings          *prometheus.CounterVec
	medicineChecks    *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
}

// New registers every instrument on a private registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Prescription extractions by decoder and outcome.",
		}, []string{"decoder", "outcome"}),
		overallConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overall_confidence",
			Help:      "Overall confidence of successful extractions.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		medicationsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "medications_found",
			Help:      "Medications found per successful extraction.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Validation findings by kind.",
		}, []string{"kind"}),
		medicineChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "medicine_checks_total",
			Help:      "Single medicine validations by result.",
		}, []string{"valid"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.extractions,
		m.overallConfidence,
		m.medicationsFound,
		m.findings,
		m.medicineChecks,
		m.cacheLookups,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveExtraction records one pipeline run. confidence and medications are
// only observed for OutcomeOK.
func (m *Metrics) ObserveExtraction(decoder, outcome string, confidence, medications int) {
	if m == nil {
		return
	}
	if decoder == "" {
		decoder = "none"
	}
	m.extractions.WithLabelValues(decoder, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.overallConfidence.Observe(float64(confidence))
	m.medicationsFound.Observe(float64(medications))
}

func (m *Metrics) ObserveFinding(kind string) {
	if m == nil {
		return
	}
	m.findings.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveMedicineCheck(valid bool) {
	if m == nil {
		return
	}
	m.medicineChecks.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// ObserveCacheLookup records a lookup; result is "hit", "miss" or "error".
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
