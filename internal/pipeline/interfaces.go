package pipeline

import (
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/processing/chain"
	"glyph-skeleton/internal/processing/filters"
	"glyph-skeleton/internal/processing/threshold"
	"glyph-skeleton/internal/processors"
	"glyph-skeleton/internal/results"
)

// Binarizer turns any supported image input into a foreground mask.
type Binarizer interface {
	Binarize(input interface{}) (*mask.Mask, error)
}

// Morphology applies erosion and dilation with a fixed structuring element.
type Morphology = chain.Morphology

// Errors surfaced by Process, re-exported so callers need only this package.
var (
	ErrImageNotFound         = threshold.ErrImageNotFound
	ErrInvalidInputType      = threshold.ErrInvalidInputType
	ErrInvalidIterationCount = filters.ErrInvalidIterationCount
	ErrUnknownProcessorClass = processors.ErrUnknownProcessorClass
	ErrFlushFailed           = results.ErrFlushFailed
)

var _ Binarizer = (*threshold.Binarizer)(nil)
