// Package mask holds the two-valued raster shared by every processing stage.
package mask

import (
	"fmt"
	"image"
	"strings"
)

// Mask is a fixed-size grid of foreground (true) and background (false) cells.
type Mask struct {
	width  int
	height int
	pix    []bool
}

// New returns an all-background mask. Non-positive dimensions yield an empty mask.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		width:  width,
		height: height,
		pix:    make([]bool, width*height),
	}
}

// FromRows builds a mask from row-major booleans. Rows must share one length.
func FromRows(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	width := len(rows[0])
	m := New(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", y, len(row), width)
		}
		copy(m.pix[y*width:(y+1)*width], row)
	}
	return m, nil
}

// Parse reads an ASCII drawing where '#' or '1' marks foreground. Handy in tests
// and fixtures; every other rune is background.
func Parse(drawing string) *Mask {
	lines := strings.Split(strings.Trim(drawing, "\n"), "\n")
	width := 0
	for _, line := range lines {
		if len(line) > width {
			width = len(line)
		}
	}
	m := New(width, len(lines))
	for y, line := range lines {
		for x, r := range line {
			if r == '#' || r == '1' {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func (m *Mask) Width() int  { return m.width }
func (m *Mask) Height() int { return m.height }

// Bounds reports the mask extent as an image rectangle anchored at the origin.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// In reports whether (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// At returns the cell value; coordinates outside the mask read as background.
func (m *Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.pix[y*m.width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	if !m.In(x, y) {
		return
	}
	m.pix[y*m.width+x] = v
}

// Count returns the number of foreground cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.pix {
		if v {
			n++
		}
	}
	return n
}

func (m *Mask) Empty() bool {
	return m.Count() == 0
}

func (m *Mask) Clone() *Mask {
	c := &Mask{width: m.width, height: m.height, pix: make([]bool, len(m.pix))}
	copy(c.pix, m.pix)
	return c
}

// Equal reports whether both masks have the same size and cells.
func (m *Mask) Equal(o *Mask) bool {
	if o == nil || m.width != o.width || m.height != o.height {
		return false
	}
	for i, v := range m.pix {
		if o.pix[i] != v {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every foreground cell of m is foreground in o.
func (m *Mask) SubsetOf(o *Mask) bool {
	if o == nil || m.width != o.width || m.height != o.height {
		return false
	}
	for i, v := range m.pix {
		if v && !o.pix[i] {
			return false
		}
	}
	return true
}

// Bytes encodes the mask row-major as 0 (background) and 255 (foreground).
func (m *Mask) Bytes() []byte {
	out := make([]byte, len(m.pix))
	for i, v := range m.pix {
		if v {
			out[i] = 255
		}
	}
	return out
}

// Gray encodes the mask as an 8-bit image with values {0, 255}.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Bytes(),
		Stride: m.width,
		Rect:   m.Bounds(),
	}
}

// FromBytes decodes a row-major 8-bit buffer; any non-zero byte is foreground.
func FromBytes(width, height int, data []byte) (*Mask, error) {
	if width*height != len(data) {
		return nil, fmt.Errorf("buffer holds %d bytes, want %dx%d", len(data), width, height)
	}
	m := New(width, height)
	for i, b := range data {
		m.pix[i] = b != 0
	}
	return m, nil
}

func (m *Mask) String() string {
	var sb strings.Builder
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.At(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
