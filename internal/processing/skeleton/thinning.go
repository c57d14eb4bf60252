// Package skeleton reduces binary masks to one-pixel-wide, connectivity
// preserving skeletons.
package skeleton

import "glyph-skeleton/internal/mask"

// Neighbour offsets P2..P9, clockwise from north.
var ring = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Skeletonize thins m with the two-sub-iteration scheme of Zhang and Suen
// until a full pass removes nothing. The result is a subset of m and a fixed
// point: skeletonizing it again returns an equal mask. Pixels outside the mask
// are treated as background. m is not modified.
//
// Each sub-iteration marks its candidates on the current mask and removes them
// together. A 2x2 square whose four pixels are all marked keeps its
// bottom-right pixel, otherwise parallel removal would erase it.
func Skeletonize(m *mask.Mask) *mask.Mask {
	out := m.Clone()
	if out.Empty() {
		return out
	}

	var doomed [][2]int
	for {
		removed := 0
		for pass := 0; pass < 2; pass++ {
			doomed = candidates(out, pass, doomed[:0])
			for _, p := range doomed {
				out.Set(p[0], p[1], false)
			}
			removed += len(doomed)
		}
		if removed == 0 {
			return out
		}
	}
}

// IsSkeleton reports whether m is already a fixed point of Skeletonize.
func IsSkeleton(m *mask.Mask) bool {
	for pass := 0; pass < 2; pass++ {
		if len(candidates(m, pass, nil)) > 0 {
			return false
		}
	}
	return true
}

// candidates appends to buf the pixels one sub-iteration removes, in raster
// order.
func candidates(m *mask.Mask, pass int, buf [][2]int) [][2]int {
	marked := mask.New(m.Width(), m.Height())
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if m.At(x, y) && deletable(m, x, y, pass) {
				marked.Set(x, y, true)
			}
		}
	}

	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if !marked.At(x, y) {
				continue
			}
			if marked.At(x-1, y-1) && marked.At(x, y-1) && marked.At(x-1, y) {
				continue
			}
			buf = append(buf, [2]int{x, y})
		}
	}
	return buf
}

func neighbourhood(m *mask.Mask, x, y int) [8]bool {
	var p [8]bool
	for i, d := range ring {
		p[i] = m.At(x+d[0], y+d[1])
	}
	return p
}

// removable holds when the foreground ring is one contiguous arc of two to
// six pixels: the pixel is neither an endpoint nor interior, and deleting it
// neither splits nor merges anything.
func removable(p [8]bool) bool {
	neighbours := 0
	transitions := 0
	for i := 0; i < 8; i++ {
		if p[i] {
			neighbours++
		}
		if !p[i] && p[(i+1)%8] {
			transitions++
		}
	}
	return neighbours >= 2 && neighbours <= 6 && transitions == 1
}

func deletable(m *mask.Mask, x, y, pass int) bool {
	p := neighbourhood(m, x, y)
	if !removable(p) {
		return false
	}

	// p[0]=P2 north, p[2]=P4 east, p[4]=P6 south, p[6]=P8 west.
	if pass == 0 {
		return !(p[0] && p[2] && p[4]) && !(p[2] && p[4] && p[6])
	}
	return !(p[0] && p[2] && p[6]) && !(p[0] && p[4] && p[6])
}
