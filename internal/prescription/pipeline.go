// SPDX-License-Identifier: Apache-2.0

package prescription

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Pipeline decodes an OCR payload with the first matching TextDecoder and
// runs the Engine over the decoded text.
type Pipeline struct {
	decoders []TextDecoder
	engine   *Engine
}

// NewPipeline creates a Pipeline over engine. Decoders are tried in order.
func NewPipeline(engine *Engine, decoders ...TextDecoder) *Pipeline {
	return &Pipeline{
		decoders: decoders,
		engine:   engine,
	}
}

// RunResult is the output of a successful pipeline run.
type RunResult struct {
	Result      *Result
	DecoderUsed string
	TextLength  int
}

func (p *Pipeline) Run(ctx context.Context, source OCRSource) (*Result, error) {
	result, err := p.RunWithMeta(ctx, source)
	if err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (p *Pipeline) RunWithMeta(ctx context.Context, source OCRSource) (RunResult, error) {
	if len(source.Content) == 0 {
		return RunResult{}, fmt.Errorf("%w: ocr content is empty", ErrInvalidInput)
	}

	decoder, err := p.selectDecoder(source)
	if err != nil {
		return RunResult{}, err
	}

	text, err := decoder.Decode(ctx, source)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return RunResult{}, err
		}
		return RunResult{}, fmt.Errorf("%w: decoder %q failed: %w", ErrInvalidInput, decoder.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	result, err := p.engine.Extract(text)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{
		Result:      result,
		DecoderUsed: decoder.Name(),
		TextLength:  utf8.RuneCountInString(text),
	}, nil
}

// selectDecoder returns the first registered decoder that can handle the given source.
func (p *Pipeline) selectDecoder(source OCRSource) (TextDecoder, error) {
	for _, decoder := range p.decoders {
		if decoder.CanHandle(source) {
			return decoder, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported ocr format: no decoder found for source %q (format hint: %q)", ErrInvalidInput, source.ID, source.Format)
}

// RegisteredDecoders returns the names of all currently registered decoders.
func (p *Pipeline) RegisteredDecoders() []string {
	names := make([]string, len(p.decoders))
	for i, decoder := range p.decoders {
		names[i] = decoder.Name()
	}
	return names
}

func (p *Pipeline) Engine() *Engine {
	return p.engine
}
