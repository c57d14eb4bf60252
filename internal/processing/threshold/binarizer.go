package threshold

import (
	"errors"
	"fmt"
	"image"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/opencv/conversion"
	"glyph-skeleton/internal/opencv/safe"
	"glyph-skeleton/internal/processing/filters"

	"gocv.io/x/gocv"
)

var (
	ErrImageNotFound    = errors.New("image not found or not decodable")
	ErrInvalidInputType = errors.New("invalid image input type: expected file path, encoded bytes, image or 2-D/3-D grid")
)

// Binarizer turns an image source into a foreground/background mask.
type Binarizer struct {
	calculator *Calculator
	loader     *Loader
	logger     logger.Logger
}

func NewBinarizer(calculator *Calculator, log logger.Logger) *Binarizer {
	if calculator == nil {
		calculator = NewCalculator(MethodOtsu, 0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Binarizer{
		calculator: calculator,
		loader:     NewLoader(log),
		logger:     log,
	}
}

// Binarize accepts a file path (string), encoded image bytes ([]byte), an
// image.Image, a gocv.Mat (not closed here), a 2-D intensity grid or a 3-D
// RGB(A) grid. Grids of uint8 are used as is; float, int and uint16 grids go
// through conversion.QuantizeGrid, so [0, 1] intensities scale to [0, 255].
// A pixel is foreground when its intensity exceeds the threshold.
func (b *Binarizer) Binarize(input interface{}) (*mask.Mask, error) {
	src, err := b.toMat(input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gray, err := filters.ConvertToGrayscale(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputType, err)
	}
	defer gray.Close()

	histogram, err := Histogram(gray)
	if err != nil {
		return nil, err
	}

	threshold := b.calculator.Calculate(histogram)

	m, err := apply(gray, threshold)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Binarizer", "mask computed", map[string]interface{}{
		"method":     string(b.calculator.Method()),
		"threshold":  threshold,
		"width":      m.Width(),
		"height":     m.Height(),
		"foreground": m.Count(),
	})

	return m, nil
}

func (b *Binarizer) toMat(input interface{}) (*safe.Mat, error) {
	var (
		mat *safe.Mat
		err error
	)

	switch v := input.(type) {
	case string:
		return b.loader.LoadFile(v)
	case []byte:
		return b.loader.LoadBytes(v)
	case image.Image:
		mat, err = conversion.ImageToMat(v)
	case gocv.Mat:
		mat, err = safe.NewMatFromMat(v)
	case *gocv.Mat:
		if v == nil {
			return nil, fmt.Errorf("%w: nil Mat", ErrInvalidInputType)
		}
		mat, err = safe.NewMatFromMat(*v)
	case [][]uint8:
		mat, err = conversion.GridToMat(v)
	case [][][]uint8:
		mat, err = conversion.ColorGridToMat(v)
	case [][]float64:
		mat, err = conversion.GridToMat(conversion.QuantizeGrid(v))
	case [][]float32:
		mat, err = conversion.GridToMat(conversion.QuantizeGrid(v))
	case [][]int:
		mat, err = conversion.GridToMat(conversion.QuantizeGrid(v))
	case [][]int64:
		mat, err = conversion.GridToMat(conversion.QuantizeGrid(v))
	case [][]uint16:
		mat, err = conversion.GridToMat(conversion.QuantizeGrid(v))
	case [][][]float64:
		mat, err = conversion.ColorGridToMat(conversion.QuantizeColorGrid(v))
	case [][][]float32:
		mat, err = conversion.ColorGridToMat(conversion.QuantizeColorGrid(v))
	case [][][]int:
		mat, err = conversion.ColorGridToMat(conversion.QuantizeColorGrid(v))
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidInputType, input)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputType, err)
	}
	return mat, nil
}

// Histogram counts the 256 intensity levels of a CV_8UC1 Mat.
func Histogram(gray *safe.Mat) ([]int, error) {
	if err := safe.ValidateSingleChannel8U(gray, "histogram"); err != nil {
		return nil, err
	}

	data, err := gray.Bytes()
	if err != nil {
		return nil, err
	}

	histogram := make([]int, 256)
	for _, v := range data {
		histogram[v]++
	}
	return histogram, nil
}

func apply(gray *safe.Mat, threshold float64) (*mask.Mask, error) {
	data, err := gray.Bytes()
	if err != nil {
		return nil, err
	}

	m := mask.New(gray.Cols(), gray.Rows())
	width := gray.Cols()
	for i, v := range data {
		if float64(v) > threshold {
			m.Set(i%width, i/width, true)
		}
	}
	return m, nil
}
