package filters

import (
	"errors"
	"testing"

	"glyph-skeleton/internal/mask"
)

func TestValidateIterations(t *testing.T) {
	for _, n := range []int{0, -1, -20} {
		if err := ValidateIterations(n); !errors.Is(err, ErrInvalidIterationCount) {
			t.Errorf("ValidateIterations(%d) = %v, want ErrInvalidIterationCount", n, err)
		}
	}
	if err := ValidateIterations(1); err != nil {
		t.Errorf("ValidateIterations(1) = %v", err)
	}
}

func TestStructuringElement_IsFull3x3(t *testing.T) {
	for y, row := range StructuringElement() {
		for x, v := range row {
			if !v {
				t.Errorf("element (%d,%d) is off", x, y)
			}
		}
	}
}

func TestErode(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	m := mask.Parse(`
.........
.#######.
.#######.
.#######.
.#######.
.#######.
.........`)

	got, err := tr.Erode(m, 1)
	if err != nil {
		t.Fatalf("Erode: %v", err)
	}
	want := mask.Parse(`
.........
.........
..#####..
..#####..
..#####..
.........
.........`)
	if !got.Equal(want) {
		t.Errorf("Erode =\n%s\nwant\n%s", got, want)
	}

	twice, err := tr.Erode(m, 2)
	if err != nil {
		t.Fatalf("Erode x2: %v", err)
	}
	if twice.Count() != 3 {
		t.Errorf("two erosions left %d pixels, want 3", twice.Count())
	}
	if !twice.SubsetOf(got) || !got.SubsetOf(m) {
		t.Error("erosion is not monotone")
	}
}

func TestDilate(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	m := mask.Parse(".......\n.......\n.......\n...#...\n.......\n.......\n.......")
	got, err := tr.Dilate(m, 2)
	if err != nil {
		t.Fatalf("Dilate: %v", err)
	}
	if got.Count() != 25 {
		t.Errorf("two dilations of a point cover %d pixels, want 25", got.Count())
	}
	if !m.SubsetOf(got) {
		t.Error("dilation is not extensive")
	}
}

func TestClosingIsExtensive(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	m := mask.Parse(`
..........
.###.###..
.###.###..
.#.....#..
..........`)
	d, err := tr.Dilate(m, 1)
	if err != nil {
		t.Fatal(err)
	}
	closed, err := tr.Erode(d, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !m.SubsetOf(closed) {
		t.Errorf("closing lost foreground:\n%s", closed)
	}
}

func TestMorphology_Edges(t *testing.T) {
	tr := NewTransformer()
	defer tr.Close()

	if _, err := tr.Erode(mask.Parse("#"), 0); !errors.Is(err, ErrInvalidIterationCount) {
		t.Errorf("Erode with 0 iterations = %v", err)
	}
	if _, err := tr.Dilate(mask.Parse("#"), -3); !errors.Is(err, ErrInvalidIterationCount) {
		t.Errorf("Dilate with -3 iterations = %v", err)
	}

	empty := mask.New(4, 4)
	got, err := tr.Dilate(empty, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Empty() {
		t.Error("dilating an empty mask produced foreground")
	}

	zero, err := tr.Erode(mask.New(0, 0), 1)
	if err != nil {
		t.Fatalf("Erode on zero-size mask: %v", err)
	}
	if zero.Width() != 0 {
		t.Error("zero-size mask changed shape")
	}
}
