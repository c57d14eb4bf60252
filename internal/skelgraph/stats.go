package skelgraph

import "glyph-skeleton/internal/mask"

// Stats summarizes the node structure of a skeleton.
type Stats struct {
	Pixels     int
	Endpoints  int
	Junctions  int
	Components int
	Cycles     int
}

// Analyze counts endpoints, junctions, components and node-free loops.
func Analyze(skel *mask.Mask) Stats {
	if skel == nil || skel.Empty() {
		return Stats{}
	}

	pg := buildGraph(skel)
	var s Stats
	for _, comp := range pg.components() {
		s.Components++
		s.Pixels += len(comp)
		nodes := 0
		for _, id := range comp {
			switch d := pg.degree(id); {
			case d <= 1:
				s.Endpoints++
				nodes++
			case d >= 3:
				s.Junctions++
				nodes++
			}
		}
		if nodes == 0 && len(comp) > 1 {
			s.Cycles++
		}
	}
	return s
}
