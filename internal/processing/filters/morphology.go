package filters

import (
	"errors"
	"fmt"
	"image"

	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/opencv/conversion"
	"glyph-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrInvalidIterationCount is returned for iteration counts below one.
var ErrInvalidIterationCount = errors.New("iterations must be a positive integer")

// StructuringElement returns the 3x3 fully connected neighbourhood used by
// every erosion and dilation.
func StructuringElement() [3][3]bool {
	return [3][3]bool{
		{true, true, true},
		{true, true, true},
		{true, true, true},
	}
}

// Transformer applies erosion and dilation with a fixed 3x3 rectangular
// kernel. The kernel is created once and only read afterwards.
type Transformer struct {
	kernel gocv.Mat
}

func NewTransformer() *Transformer {
	return &Transformer{
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3}),
	}
}

func (t *Transformer) Name() string {
	return "morphology_filter"
}

// Close releases the kernel.
func (t *Transformer) Close() {
	if !t.kernel.Empty() {
		t.kernel.Close()
	}
}

// ValidateIterations rejects non-positive iteration counts.
func ValidateIterations(iterations int) error {
	if iterations < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterationCount, iterations)
	}
	return nil
}

// Erode applies iterations successive single-step erosions. The result is
// always a subset of the input.
func (t *Transformer) Erode(m *mask.Mask, iterations int) (*mask.Mask, error) {
	return t.apply(m, iterations, gocv.MorphErode, "erode")
}

// Dilate applies iterations successive single-step dilations. The result is
// always a superset of the input.
func (t *Transformer) Dilate(m *mask.Mask, iterations int) (*mask.Mask, error) {
	return t.apply(m, iterations, gocv.MorphDilate, "dilate")
}

func (t *Transformer) apply(m *mask.Mask, iterations int, op gocv.MorphType, name string) (*mask.Mask, error) {
	if err := ValidateIterations(iterations); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%s: mask is nil", name)
	}
	if m.Width() == 0 || m.Height() == 0 {
		return m.Clone(), nil
	}

	current, err := conversion.MaskToMat(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer func() { current.Close() }()

	for i := 0; i < iterations; i++ {
		next, err := t.step(current, op)
		if err != nil {
			return nil, fmt.Errorf("%s iteration %d: %w", name, i+1, err)
		}
		current.Close()
		current = next
	}

	return conversion.MatToMask(current)
}

func (t *Transformer) step(src *safe.Mat, op gocv.MorphType) (*safe.Mat, error) {
	dst, err := safe.NewTaggedMat(src.Rows(), src.Cols(), src.Type(), "morphology")
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	if err := gocv.MorphologyEx(srcMat, &dstMat, op, t.kernel); err != nil {
		dst.Close()
		return nil, err
	}

	return dst, nil
}
