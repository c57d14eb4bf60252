package chain

import (
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/processing/filters"
	"glyph-skeleton/internal/processing/skeleton"
)

// Morphology is the subset of filters.Transformer the chain needs.
type Morphology interface {
	Erode(m *mask.Mask, iterations int) (*mask.Mask, error)
	Dilate(m *mask.Mask, iterations int) (*mask.Mask, error)
}

type ErodeStep struct{ morph Morphology }

func NewErodeStep(morph Morphology) *ErodeStep { return &ErodeStep{morph: morph} }

func (s *ErodeStep) Name() string                   { return "erode" }
func (s *ErodeStep) ShouldExecute(flags Flags) bool { return flags.Erode }

func (s *ErodeStep) Apply(input *mask.Mask, flags Flags) (*mask.Mask, error) {
	return s.morph.Erode(input, flags.Iterations)
}

type DilateStep struct{ morph Morphology }

func NewDilateStep(morph Morphology) *DilateStep { return &DilateStep{morph: morph} }

func (s *DilateStep) Name() string                   { return "dilate" }
func (s *DilateStep) ShouldExecute(flags Flags) bool { return flags.Dilate }

func (s *DilateStep) Apply(input *mask.Mask, flags Flags) (*mask.Mask, error) {
	return s.morph.Dilate(input, flags.Iterations)
}

type SkeletonizeStep struct{}

func NewSkeletonizeStep() *SkeletonizeStep { return &SkeletonizeStep{} }

func (s *SkeletonizeStep) Name() string                   { return "skeletonize" }
func (s *SkeletonizeStep) ShouldExecute(flags Flags) bool { return flags.Skeletonize }

func (s *SkeletonizeStep) Apply(input *mask.Mask, _ Flags) (*mask.Mask, error) {
	return skeleton.Skeletonize(input), nil
}

// Standard is the fixed erode, dilate, skeletonize order.
func Standard(morph Morphology) *ProcessingChain {
	return NewProcessingChain(
		NewErodeStep(morph),
		NewDilateStep(morph),
		NewSkeletonizeStep(),
	)
}

var _ Morphology = (*filters.Transformer)(nil)
