// SPDX-License-Identifier: Apache-2.0

package decoders

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

// visionPayload covers both a bare AnnotateImageResponse and the batch
// envelope that wraps it in "responses".
type visionPayload struct {
	TextAnnotations []struct {
		Description string `yaml:"description"`
	} `yaml:"textAnnotations"`
	FullTextAnnotation *struct {
		Text string `yaml:"text"`
	} `yaml:"fullTextAnnotation"`
	Error *struct {
		Code    int    `yaml:"code"`
		Message string `yaml:"message"`
	} `yaml:"error"`
	Responses []visionPayload `yaml:"responses"`
}

// VisionDecoder reads Google Cloud Vision text-detection responses. The first
// text annotation holds the full transcription; fullTextAnnotation is used
// when it is missing.
type VisionDecoder struct{}

func NewVisionDecoder() *VisionDecoder {
	return &VisionDecoder{}
}

func (d *VisionDecoder) Name() string {
	return "vision"
}

func (d *VisionDecoder) CanHandle(source prescription.OCRSource) bool {
	if formatIs(source, "vision", "google-vision", "gcv") {
		return true
	}
	content := bytes.TrimSpace(source.Content)
	if !bytes.HasPrefix(content, []byte("{")) {
		return false
	}
	return bytes.Contains(content, []byte(`"textAnnotations"`)) || bytes.Contains(content, []byte(`"fullTextAnnotation"`))
}

func (d *VisionDecoder) Decode(_ context.Context, source prescription.OCRSource) (string, error) {
	var payload visionPayload
	if err := yaml.Unmarshal(source.Content, &payload); err != nil {
		return "", fmt.Errorf("failed to unmarshal vision response: %w", err)
	}

	resp := payload
	if len(payload.Responses) > 0 {
		resp = payload.Responses[0]
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("vision error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var text string
	if len(resp.TextAnnotations) > 0 {
		text = resp.TextAnnotations[0].Description
	}
	if text == "" && resp.FullTextAnnotation != nil {
		text = resp.FullTextAnnotation.Text
	}
	if text == "" {
		return "", errors.New("vision response contains no text")
	}
	return Normalize(text), nil
}
