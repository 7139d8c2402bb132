// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"strings"
	"unicode"
)

const (
	noiseRatioThreshold = 0.10
	noisePenalty        = 0.8
	shortTextLength     = 50
	shortTextPenalty    = 0.7
	keywordReward       = 1.05
	maxQuality          = 1.0
)

// qualityKeywords each reward the score once when present anywhere in the text.
var qualityKeywords = []string{"prescription", "doctor", "patient", "medicine", "dosage", "mg", "tablet"}

// AssessQuality scores the legibility of OCR text as a multiplier in (0, 1].
func AssessQuality(text string) float64 {
	quality := 1.0

	var total, special int
	for _, r := range text {
		total++
		if !isASCIIAlnum(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if total > 0 && float64(special)/float64(total) > noiseRatioThreshold {
		quality *= noisePenalty
	}
	if total < shortTextLength {
		quality *= shortTextPenalty
	}

	lower := strings.ToLower(text)
	for _, kw := range qualityKeywords {
		if strings.Contains(lower, kw) {
			quality *= keywordReward
		}
	}

	if quality > maxQuality {
		quality = maxQuality
	}
	return quality
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
