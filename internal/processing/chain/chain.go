package chain

import (
	"fmt"
	"time"

	"glyph-skeleton/internal/mask"
)

// Flags enables the optional mask stages of one run.
type Flags struct {
	Erode       bool
	Dilate      bool
	Skeletonize bool
	Iterations  int
}

type ProcessingStep interface {
	Apply(input *mask.Mask, flags Flags) (*mask.Mask, error)
	Name() string
	ShouldExecute(flags Flags) bool
}

// Observer is told about every step that ran.
type Observer interface {
	StepCompleted(name string, elapsed time.Duration)
}

// ProcessingChain runs its steps in insertion order; flags only switch steps
// on or off, never reorder them.
type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps ...ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// Execute returns the final mask and the names of the steps that ran.
func (pc *ProcessingChain) Execute(input *mask.Mask, flags Flags, observer Observer) (*mask.Mask, []string, error) {
	current := input
	var ran []string

	for _, step := range pc.steps {
		if !step.ShouldExecute(flags) {
			continue
		}

		start := time.Now()
		result, err := step.Apply(current, flags)
		if err != nil {
			return nil, ran, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		if observer != nil {
			observer.StepCompleted(step.Name(), time.Since(start))
		}

		current = result
		ran = append(ran, step.Name())
	}

	return current, ran, nil
}

func (pc *ProcessingChain) StepCount() int {
	return len(pc.steps)
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
