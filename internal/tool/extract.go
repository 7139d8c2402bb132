// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rxverify/rxverify-mcp/internal/cache"
	"github.com/rxverify/rxverify-mcp/internal/metrics"
	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

// MetadataExtractPrescription describes the extract_prescription tool.
var MetadataExtractPrescription = &mcp.Tool{
	Name: "extract_prescription",
	Description: "Extract structured fields from the OCR output of a medical prescription. " +
		"Returns every catalog field with its value, a 0-100 confidence and all raw matches, " +
		"the medications found with their validity against the known-medicine list, " +
		"and ordered validation findings (success, warning, error). " +
		"needs_review is true when any finding is an error; such results should be checked by a pharmacist.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "OCR output: plain text, a Google Vision JSON response, or tesseract TSV",
			},
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Format hint for the content. If omitted, auto-detection is used.",
				"enum":        []string{"text", "vision", "tesseract-tsv"},
			},
			"source_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional identifier for the scanned prescription (file name, upload ID, etc.) used in logs.",
			},
		},
	},
}

// InputExtractPrescription is the input for the ExtractPrescription tool.
type InputExtractPrescription struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	SourceID string `json:"source_id"`
}

// OutputExtractPrescription is the output for the ExtractPrescription tool.
type OutputExtractPrescription struct {
	RequestID string `json:"request_id"`
	// DecoderUsed is the name of the decoder that turned content into text.
	DecoderUsed       string                        `json:"decoder_used"`
	Fields            []prescription.ExtractedField `json:"fields"`
	Medications       []prescription.Medication     `json:"medications"`
	Findings          []prescription.Finding        `json:"findings"`
	OverallConfidence int                           `json:"overall_confidence"`
	NeedsReview       bool                          `json:"needs_review"`
	// Cached is true when the result was served from the result cache.
	Cached bool `json:"cached"`
}

type cachedExtraction struct {
	DecoderUsed string               `json:"decoder_used"`
	Result      *prescription.Result `json:"result"`
}

// Extract runs the pipeline over in, consulting the result cache first.
// Errors wrapping prescription.ErrInvalidInput are caused by the input.
func (s *Service) Extract(ctx context.Context, in InputExtractPrescription) (OutputExtractPrescription, error) {
	id := requestID(ctx)
	log := s.logger.With(zap.String("request_id", id), zap.String("source_id", in.SourceID))

	if in.Content == "" {
		s.metrics.ObserveExtraction("", metrics.OutcomeInvalid, 0, 0)
		return OutputExtractPrescription{}, fmt.Errorf("%w: content is required", prescription.ErrInvalidInput)
	}

	source := prescription.OCRSource{
		Content: []byte(in.Content),
		Format:  in.Format,
		ID:      in.SourceID,
	}
	key := cache.Key(s.pipeline.Engine().Fingerprint(), source.Format, source.Content)

	var hit cachedExtraction
	err := s.cache.Get(ctx, key, &hit)
	switch {
	case err == nil && hit.Result != nil:
		s.metrics.ObserveCacheLookup("hit")
		out := newOutput(id, hit.DecoderUsed, hit.Result)
		out.Cached = true
		s.observe(log, out)
		return out, nil
	case err == nil, errors.Is(err, cache.ErrCacheMiss):
		s.metrics.ObserveCacheLookup("miss")
	default:
		s.metrics.ObserveCacheLookup("error")
		log.Warn("result cache lookup failed", zap.Error(err))
	}

	run, err := s.pipeline.RunWithMeta(ctx, source)
	if err != nil {
		if errors.Is(err, prescription.ErrInvalidInput) {
			s.metrics.ObserveExtraction(run.DecoderUsed, metrics.OutcomeInvalid, 0, 0)
			log.Warn("extraction rejected", zap.Error(err))
		} else {
			s.metrics.ObserveExtraction(run.DecoderUsed, metrics.OutcomeError, 0, 0)
			log.Error("extraction failed", zap.Error(err))
		}
		return OutputExtractPrescription{}, err
	}

	if err := s.cache.Set(ctx, key, cachedExtraction{DecoderUsed: run.DecoderUsed, Result: run.Result}); err != nil {
		log.Warn("result cache store failed", zap.Error(err))
	}

	out := newOutput(id, run.DecoderUsed, run.Result)
	s.observe(log, out)
	return out, nil
}

func newOutput(id, decoder string, r *prescription.Result) OutputExtractPrescription {
	return OutputExtractPrescription{
		RequestID:         id,
		DecoderUsed:       decoder,
		Fields:            r.Fields,
		Medications:       r.Medications,
		Findings:          r.Findings,
		OverallConfidence: r.OverallConfidence,
		NeedsReview:       r.HasErrors(),
	}
}

func (s *Service) observe(log *zap.Logger, out OutputExtractPrescription) {
	s.metrics.ObserveExtraction(out.DecoderUsed, metrics.OutcomeOK, out.OverallConfidence, len(out.Medications))
	for _, f := range out.Findings {
		s.metrics.ObserveFinding(string(f.Kind))
	}
	log.Info("extraction completed",
		zap.String("decoder", out.DecoderUsed),
		zap.Int("overall_confidence", out.OverallConfidence),
		zap.Int("medications", len(out.Medications)),
		zap.Bool("needs_review", out.NeedsReview),
		zap.Bool("cached", out.Cached),
	)
}

// ExtractPrescription is the MCP handler for extract_prescription.
func (s *Service) ExtractPrescription(ctx context.Context, _ *mcp.CallToolRequest, input InputExtractPrescription) (*mcp.CallToolResult, OutputExtractPrescription, error) {
	out, err := s.Extract(ctx, input)
	if err != nil {
		return nil, OutputExtractPrescription{}, err
	}
	return nil, out, nil
}
