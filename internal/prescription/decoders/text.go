// SPDX-License-Identifier: Apache-2.0

package decoders

import (
	"bytes"
	"context"
	"strings"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

// TextDecoder passes plain OCR text through. Invalid UTF-8 sequences are
// replaced with U+FFFD.
type TextDecoder struct{}

func NewTextDecoder() *TextDecoder {
	return &TextDecoder{}
}

func (d *TextDecoder) Name() string {
	return "text"
}

// CanHandle accepts a text format hint, or no hint at all as long as the
// content does not look binary.
func (d *TextDecoder) CanHandle(source prescription.OCRSource) bool {
	if formatIs(source, "text", "txt", "plain") {
		return true
	}
	return source.Format == "" && !bytes.ContainsRune(source.Content, 0)
}

func (d *TextDecoder) Decode(_ context.Context, source prescription.OCRSource) (string, error) {
	return Normalize(strings.ToValidUTF8(string(source.Content), "\uFFFD")), nil
}
