package conversion

import (
	"fmt"
	"image"
	"math"

	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MaskToMat encodes a mask as a CV_8UC1 Mat with values {0, 255}.
func MaskToMat(m *mask.Mask) (*safe.Mat, error) {
	if m == nil {
		return nil, fmt.Errorf("mask is nil")
	}

	mat, err := safe.NewTaggedMat(m.Height(), m.Width(), gocv.MatTypeCV8UC1, "mask")
	if err != nil {
		return nil, err
	}

	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			var value uint8
			if m.At(x, y) {
				value = 255
			}
			if err := mat.SetUCharAt(y, x, value); err != nil {
				mat.Close()
				return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}

// MatToMask decodes a CV_8UC1 Mat; any non-zero pixel is foreground.
func MatToMask(src *safe.Mat) (*mask.Mask, error) {
	if err := safe.ValidateSingleChannel8U(src, "Mat to mask conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()
	m := mask.New(cols, rows)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			value, err := src.GetUCharAt(y, x)
			if err != nil {
				return nil, fmt.Errorf("pixel access failed at (%d,%d): %w", x, y, err)
			}
			m.Set(x, y, value != 0)
		}
	}

	return m, nil
}

// GridToMat copies a row-major intensity grid into a CV_8UC1 Mat.
func GridToMat(grid [][]uint8) (*safe.Mat, error) {
	rows, cols, err := gridShape(len(grid), func(i int) int { return len(grid[i]) })
	if err != nil {
		return nil, err
	}

	mat, err := safe.NewTaggedMat(rows, cols, gocv.MatTypeCV8UC1, "intensity_grid")
	if err != nil {
		return nil, err
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if err := mat.SetUCharAt(y, x, grid[y][x]); err != nil {
				mat.Close()
				return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
			}
		}
	}

	return mat, nil
}

// ColorGridToMat copies an RGB or RGBA grid into a BGR/BGRA Mat, the channel
// order OpenCV colour conversions expect.
func ColorGridToMat(grid [][][]uint8) (*safe.Mat, error) {
	rows, cols, err := gridShape(len(grid), func(i int) int { return len(grid[i]) })
	if err != nil {
		return nil, err
	}

	channels := len(grid[0][0])
	var matType gocv.MatType
	switch channels {
	case 3:
		matType = gocv.MatTypeCV8UC3
	case 4:
		matType = gocv.MatTypeCV8UC4
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	mat, err := safe.NewTaggedMat(rows, cols, matType, "color_grid")
	if err != nil {
		return nil, err
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px := grid[y][x]
			if len(px) != channels {
				mat.Close()
				return nil, fmt.Errorf("pixel (%d,%d) has %d channels, want %d", x, y, len(px), channels)
			}
			bgr := [4]uint8{px[2], px[1], px[0]}
			if channels == 4 {
				bgr[3] = px[3]
			}
			for c := 0; c < channels; c++ {
				if err := mat.SetUCharAt3(y, x, c, bgr[c]); err != nil {
					mat.Close()
					return nil, fmt.Errorf("pixel setting failed at (%d,%d): %w", x, y, err)
				}
			}
		}
	}

	return mat, nil
}

// ImageToMat converts a Go image into a Mat: *image.Gray stays single channel,
// everything else becomes BGR.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	if err := safe.ValidateDimensions(bounds.Dx(), bounds.Dy(), "image to Mat conversion"); err != nil {
		return nil, err
	}

	var (
		mat gocv.Mat
		err error
	)
	switch typedImg := img.(type) {
	case *image.Gray:
		mat, err = gocv.ImageGrayToMatGray(typedImg)
	default:
		mat, err = gocv.ImageToMatRGB(img)
	}
	if err != nil {
		return nil, fmt.Errorf("image to Mat conversion failed: %w", err)
	}

	return safe.Adopt(mat, "go_image")
}

func gridShape(rows int, rowLen func(int) int) (int, int, error) {
	if rows == 0 {
		return 0, 0, fmt.Errorf("grid has no rows")
	}
	cols := rowLen(0)
	if cols == 0 {
		return 0, 0, fmt.Errorf("grid has no columns")
	}
	for i := 1; i < rows; i++ {
		if rowLen(i) != cols {
			return 0, 0, fmt.Errorf("ragged grid: row %d has %d columns, want %d", i, rowLen(i), cols)
		}
	}
	return rows, cols, nil
}

// Number is the element type of a numeric grid accepted by QuantizeGrid.
type Number interface {
	~uint8 | ~uint16 | ~int | ~int32 | ~int64 | ~float32 | ~float64
}

// QuantizeGrid maps a numeric grid onto 8-bit intensities. When every value
// lies in [0, 1] the grid is read as normalized and scaled to [0, 255];
// otherwise values are rounded and clamped to [0, 255]. Row lengths are kept,
// so ragged grids still fail in GridToMat.
func QuantizeGrid[T Number](grid [][]T) [][]uint8 {
	scale := gridScale(grid)
	out := make([][]uint8, len(grid))
	for y, row := range grid {
		out[y] = make([]uint8, len(row))
		for x, v := range row {
			out[y][x] = quantize(float64(v), scale)
		}
	}
	return out
}

// QuantizeColorGrid is QuantizeGrid for grids of RGB(A) pixels.
func QuantizeColorGrid[T Number](grid [][][]T) [][][]uint8 {
	flat := make([][]T, 0, len(grid))
	for _, row := range grid {
		flat = append(flat, row...)
	}
	scale := gridScale(flat)

	out := make([][][]uint8, len(grid))
	for y, row := range grid {
		out[y] = make([][]uint8, len(row))
		for x, px := range row {
			out[y][x] = make([]uint8, len(px))
			for c, v := range px {
				out[y][x][c] = quantize(float64(v), scale)
			}
		}
	}
	return out
}

func gridScale[T Number](grid [][]T) float64 {
	for _, row := range grid {
		for _, v := range row {
			if f := float64(v); f < 0 || f > 1 {
				return 1
			}
		}
	}
	return 255
}

func quantize(v, scale float64) uint8 {
	v = math.Round(v * scale)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
