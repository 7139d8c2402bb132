// SPDX-License-Identifier: Apache-2.0

// Package decoders turns OCR engine output into the plain text the
// prescription engine consumes.
package decoders

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

// All returns every decoder in selection order. The plain-text decoder is
// last because it accepts any textual payload.
func All() []prescription.TextDecoder {
	return []prescription.TextDecoder{
		NewVisionDecoder(),
		NewTesseractDecoder(),
		NewTextDecoder(),
	}
}

// Normalize applies NFKC so ligatures and full-width forms become their
// ASCII equivalents, and unifies line endings.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func formatIs(source prescription.OCRSource, names ...string) bool {
	for _, n := range names {
		if strings.EqualFold(source.Format, n) {
			return true
		}
	}
	return false
}
