// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// MetadataValidateMedicine describes the validate_medicine tool.
var MetadataValidateMedicine = &mcp.Tool{
	Name: "validate_medicine",
	Description: "Check a single medicine name against the known-medicine list. " +
		"Matching is case-insensitive and accepts partial reads in either direction. " +
		"Unknown names come back with up to 5 suggestions sharing their first three letters.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"medicine_name"},
		"properties": map[string]interface{}{
			"medicine_name": map[string]interface{}{
				"type":        "string",
				"description": "Medicine name as read from the prescription",
			},
		},
	},
}

type InputValidateMedicine struct {
	MedicineName string `json:"medicine_name"`
}

type OutputValidateMedicine struct {
	MedicineName string   `json:"medicine_name"`
	IsValid      bool     `json:"is_valid"`
	Confidence   int      `json:"confidence"`
	Suggestions  []string `json:"suggestions"`
}

func (s *Service) ValidateMedicine(ctx context.Context, in InputValidateMedicine) (OutputValidateMedicine, error) {
	check, err := s.pipeline.Engine().ValidateMedicine(in.MedicineName)
	if err != nil {
		return OutputValidateMedicine{}, err
	}
	s.metrics.ObserveMedicineCheck(check.IsValid)
	s.logger.Debug("medicine validated",
		zap.String("request_id", requestID(ctx)),
		zap.String("medicine_name", check.Name),
		zap.Bool("valid", check.IsValid),
	)
	return OutputValidateMedicine{
		MedicineName: check.Name,
		IsValid:      check.IsValid,
		Confidence:   check.Confidence,
		Suggestions:  check.Suggestions,
	}, nil
}

// ValidateMedicineTool is the MCP handler for validate_medicine.
func (s *Service) ValidateMedicineTool(ctx context.Context, _ *mcp.CallToolRequest, input InputValidateMedicine) (*mcp.CallToolResult, OutputValidateMedicine, error) {
	out, err := s.ValidateMedicine(ctx, input)
	if err != nil {
		return nil, OutputValidateMedicine{}, err
	}
	return nil, out, nil
}
