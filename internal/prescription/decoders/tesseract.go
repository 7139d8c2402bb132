// SPDX-License-Identifier: Apache-2.0

package decoders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

var tsvHeaderPrefix = []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num")

var requiredTSVColumns = []string{"page_num", "block_num", "par_num", "line_num", "conf", "text"}

// TesseractDecoder rebuilds text from `tesseract ... tsv` output. Words are
// joined with single spaces within a line and lines are separated by
// newlines, in the order tesseract emitted them. Rows with confidence -1
// are layout rows without text and are skipped.
type TesseractDecoder struct{}

func NewTesseractDecoder() *TesseractDecoder {
	return &TesseractDecoder{}
}

func (d *TesseractDecoder) Name() string {
	return "tesseract-tsv"
}

func (d *TesseractDecoder) CanHandle(source prescription.OCRSource) bool {
	if formatIs(source, "tesseract", "tesseract-tsv", "tsv") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(source.Content, " \r\n\t\uFEFF"), tsvHeaderPrefix)
}

type lineKey struct {
	page, block, par, line string
}

func (d *TesseractDecoder) Decode(_ context.Context, source prescription.OCRSource) (string, error) {
	rows := strings.Split(strings.ReplaceAll(string(source.Content), "\r\n", "\n"), "\n")
	if len(rows) == 0 {
		return "", errors.New("tesseract tsv is empty")
	}

	header := strings.Split(strings.TrimPrefix(strings.TrimSpace(rows[0]), "\uFEFF"), "\t")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range requiredTSVColumns {
		if _, ok := col[name]; !ok {
			return "", fmt.Errorf("tesseract tsv header is missing column %q", name)
		}
	}

	var (
		lines   []string
		current []string
		prev    lineKey
		started bool
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = nil
	}

	for n, row := range rows[1:] {
		if strings.TrimSpace(row) == "" {
			continue
		}
		cells := strings.SplitN(row, "\t", len(header))
		if len(cells) < len(header) {
			return "", fmt.Errorf("tesseract tsv row %d: expected %d columns, got %d", n+2, len(header), len(cells))
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cells[col["conf"]]), 64)
		if err != nil {
			return "", fmt.Errorf("tesseract tsv row %d: invalid conf: %w", n+2, err)
		}
		word := strings.TrimSpace(cells[col["text"]])
		if conf < 0 || word == "" {
			continue
		}

		key := lineKey{
			page:  cells[col["page_num"]],
			block: cells[col["block_num"]],
			par:   cells[col["par_num"]],
			line:  cells[col["line_num"]],
		}
		if started && key != prev {
			flush()
		}
		prev, started = key, true
		current = append(current, word)
	}
	flush()

	if len(lines) == 0 {
		return "", errors.New("tesseract tsv contains no recognised words")
	}
	return Normalize(strings.Join(lines, "\n")), nil
}
