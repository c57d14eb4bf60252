package threshold

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/mask"
)

func halfImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func rightHalf(w, h int) *mask.Mask {
	m := mask.New(w, h)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func TestBinarize_AllBackground(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	grid := make([][]uint8, 10)
	for i := range grid {
		grid[i] = make([]uint8, 10)
	}

	m, err := b.Binarize(grid)
	if err != nil {
		t.Fatalf("Binarize: %v", err)
	}
	if m.Width() != 10 || m.Height() != 10 {
		t.Fatalf("size = %dx%d", m.Width(), m.Height())
	}
	if !m.Empty() {
		t.Errorf("all-zero grid gave %d foreground pixels", m.Count())
	}
}

func TestBinarize_Inputs(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	img := halfImage(8, 6)
	want := rightHalf(8, 6)

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "half.png")
	if err := os.WriteFile(path, encoded.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	grid := make([][]uint8, 6)
	rgb := make([][][]uint8, 6)
	for y := range grid {
		grid[y] = make([]uint8, 8)
		rgb[y] = make([][]uint8, 8)
		for x := range grid[y] {
			v := img.GrayAt(x, y).Y
			grid[y][x] = v
			rgb[y][x] = []uint8{v, v, v}
		}
	}

	inputs := map[string]interface{}{
		"path":  path,
		"bytes": encoded.Bytes(),
		"image": img,
		"grid":  grid,
		"rgb":   rgb,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := b.Binarize(in)
			if err != nil {
				t.Fatalf("Binarize: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("mask =\n%s\nwant\n%s", got, want)
			}
		})
	}
}

func TestBinarize_NumericGrids(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	checker := mask.Parse(".#\n#.")

	tests := map[string]struct {
		in   interface{}
		want *mask.Mask
	}{
		"float64 unit": {in: [][]float64{{0, 1}, {1, 0}}, want: checker},
		"float32 unit": {in: [][]float32{{0.1, 0.9}, {0.8, 0.2}}, want: checker},
		"int levels":   {in: [][]int{{0, 200}, {200, 0}}, want: checker},
		"int64 levels": {in: [][]int64{{10, 240}, {240, 10}}, want: checker},
		"uint16 clamp": {in: [][]uint16{{0, 1000}, {1000, 0}}, want: checker},
		"float64 rgb":  {in: [][][]float64{{{0, 0, 0}, {1, 1, 1}}, {{1, 1, 1}, {0, 0, 0}}}, want: checker},
		"int rgb":      {in: [][][]int{{{0, 0, 0}, {255, 255, 255}}, {{255, 255, 255}, {0, 0, 0}}}, want: checker},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := b.Binarize(tt.in)
			if err != nil {
				t.Fatalf("Binarize: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("mask =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBinarize_UniformImageIsBackground(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	for _, level := range []uint8{0, 200, 255} {
		grid := [][]uint8{{level, level, level}, {level, level, level}}
		m, err := b.Binarize(grid)
		if err != nil {
			t.Fatalf("Binarize: %v", err)
		}
		if !m.Empty() {
			t.Errorf("uniform level %d gave %d foreground pixels", level, m.Count())
		}
	}
}

func TestBinarize_NilLogger(t *testing.T) {
	b := NewBinarizer(nil, nil)
	if _, err := b.Binarize([][]uint8{{0, 255}}); err != nil {
		t.Fatalf("Binarize: %v", err)
	}
}

func TestBinarize_MissingFile(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	_, err := b.Binarize(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Binarize(missing) = %v, want ErrImageNotFound", err)
	}
}

func TestBinarize_UndecodableBytes(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	_, err := b.Binarize([]byte("definitely not an image"))
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Binarize(garbage) = %v, want ErrImageNotFound", err)
	}
}

func TestBinarize_InvalidInputType(t *testing.T) {
	b := NewBinarizer(nil, logger.Nop())
	for name, in := range map[string]interface{}{
		"int":     42,
		"nil":     nil,
		"floats":  []float64{1, 2},
		"ragged":  [][]uint8{{1, 2}, {3}},
		"raggedF": [][]float64{{0, 1}, {1}},
		"strings": [][]string{{"a"}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Binarize(in); !errors.Is(err, ErrInvalidInputType) {
				t.Errorf("Binarize(%v) = %v, want ErrInvalidInputType", in, err)
			}
		})
	}
}

func TestBinarize_FixedThreshold(t *testing.T) {
	b := NewBinarizer(NewCalculator(MethodFixed, 100), logger.Nop())
	m, err := b.Binarize([][]uint8{{99, 100, 101, 255}})
	if err != nil {
		t.Fatal(err)
	}
	if !m.Equal(mask.Parse("..##")) {
		t.Errorf("fixed threshold mask = %s", m)
	}
}
