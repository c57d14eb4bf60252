package skelgraph

import (
	"image"

	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/results"

	"gonum.org/v1/gonum/spatial/r2"
)

// Extract decomposes skel into branches and returns one record per branch,
// each tagged with skeletonID. Nodes are endpoints (degree 1) and junctions
// (degree 3 or more); a branch is a maximal path between two nodes. A loop
// without nodes becomes a single isolated-cycle record whose coordinates end
// on the starting pixel. A lone pixel becomes a zero-length
// endpoint-to-endpoint record.
//
// Output order is deterministic for a given skeleton: components by lowest
// raster index, walks from nodes in raster order.
func Extract(skel *mask.Mask, skeletonID int) []results.BranchRecord {
	if skel == nil || skel.Empty() {
		return nil
	}

	pg := buildGraph(skel)
	w := walker{pg: pg, visited: make(map[edgeKey]bool)}
	var records []results.BranchRecord

	emit := func(kind results.BranchType, path []int64) {
		points := make([]image.Point, len(path))
		for i, id := range path {
			points[i] = pg.point(id)
		}
		records = append(records, results.BranchRecord{
			BranchID:    len(records),
			SkeletonID:  skeletonID,
			Type:        kind,
			Length:      pathLength(points),
			Coordinates: points,
		})
	}

	for _, comp := range pg.components() {
		var nodes []int64
		for _, id := range comp {
			if pg.degree(id) != 2 {
				nodes = append(nodes, id)
			}
		}

		switch {
		case len(comp) == 1:
			emit(results.EndpointToEndpoint, comp)
		case len(nodes) == 0:
			emit(results.IsolatedCycle, w.cycle(comp[0]))
		default:
			for _, n := range nodes {
				for _, m := range pg.neighbours(n) {
					if w.visited[key(n, m)] {
						continue
					}
					path := w.branch(n, m)
					emit(classify(pg.degree(path[0]), pg.degree(path[len(path)-1])), path)
				}
			}
		}
	}

	return records
}

type walker struct {
	pg      *pixelGraph
	visited map[edgeKey]bool
}

// branch follows degree-2 pixels from the edge (from, to) until it reaches a
// node, marking every traversed edge.
func (w *walker) branch(from, to int64) []int64 {
	w.visited[key(from, to)] = true
	path := []int64{from, to}
	cur := to
	for w.pg.degree(cur) == 2 {
		next, ok := w.unvisited(cur)
		if !ok {
			break
		}
		w.visited[key(cur, next)] = true
		path = append(path, next)
		cur = next
	}
	return path
}

// cycle walks a node-free loop from start back to start.
func (w *walker) cycle(start int64) []int64 {
	path := []int64{start}
	cur := start
	for {
		next, ok := w.unvisited(cur)
		if !ok {
			return path
		}
		w.visited[key(cur, next)] = true
		path = append(path, next)
		if next == start {
			return path
		}
		cur = next
	}
}

func (w *walker) unvisited(id int64) (int64, bool) {
	for _, nb := range w.pg.neighbours(id) {
		if !w.visited[key(id, nb)] {
			return nb, true
		}
	}
	return 0, false
}

func classify(startDegree, endDegree int) results.BranchType {
	startEnd := startDegree <= 1
	endEnd := endDegree <= 1
	switch {
	case startEnd && endEnd:
		return results.EndpointToEndpoint
	case startEnd || endEnd:
		return results.EndpointToJunction
	default:
		return results.JunctionToJunction
	}
}

func pathLength(points []image.Point) float64 {
	length := 0.0
	for i := 1; i < len(points); i++ {
		a := r2.Vec{X: float64(points[i-1].X), Y: float64(points[i-1].Y)}
		b := r2.Vec{X: float64(points[i].X), Y: float64(points[i].Y)}
		length += r2.Norm(r2.Sub(b, a))
	}
	return length
}
