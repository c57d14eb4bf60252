// Package skelgraph turns a raster skeleton into a branch/node graph and
// summarizes it as branch records.
package skelgraph

import (
	"image"
	"sort"

	"glyph-skeleton/internal/mask"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// pixelGraph is the adjacency graph of skeleton pixels. Node ids are raster
// indices (y*width + x), so sorting ids gives raster order.
type pixelGraph struct {
	g     *simple.UndirectedGraph
	width int
}

// buildGraph links 4-neighbours always and diagonal neighbours only when no
// shared 4-neighbour is foreground. Without that rule every staircase corner
// forms a triangle whose pixels would all read as junctions.
func buildGraph(skel *mask.Mask) *pixelGraph {
	pg := &pixelGraph{g: simple.NewUndirectedGraph(), width: skel.Width()}

	for y := 0; y < skel.Height(); y++ {
		for x := 0; x < skel.Width(); x++ {
			if skel.At(x, y) {
				pg.g.AddNode(simple.Node(pg.id(x, y)))
			}
		}
	}

	// Forward half of the 8-neighbourhood; each undirected edge is seen once.
	forward := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}
	for y := 0; y < skel.Height(); y++ {
		for x := 0; x < skel.Width(); x++ {
			if !skel.At(x, y) {
				continue
			}
			for _, d := range forward {
				nx, ny := x+d[0], y+d[1]
				if !skel.At(nx, ny) {
					continue
				}
				diagonal := d[0] != 0 && d[1] != 0
				if diagonal && (skel.At(x+d[0], y) || skel.At(x, y+d[1])) {
					continue
				}
				pg.g.SetEdge(pg.g.NewEdge(pg.g.Node(pg.id(x, y)), pg.g.Node(pg.id(nx, ny))))
			}
		}
	}

	return pg
}

func (pg *pixelGraph) id(x, y int) int64 {
	return int64(y*pg.width + x)
}

func (pg *pixelGraph) point(id int64) image.Point {
	return image.Point{X: int(id) % pg.width, Y: int(id) / pg.width}
}

func (pg *pixelGraph) degree(id int64) int {
	return pg.g.From(id).Len()
}

// neighbours returns adjacent node ids in raster order.
func (pg *pixelGraph) neighbours(id int64) []int64 {
	nodes := graph.NodesOf(pg.g.From(id))
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// components returns connected components, each sorted by id, ordered by
// their lowest id.
func (pg *pixelGraph) components() [][]int64 {
	raw := topo.ConnectedComponents(pg.g)
	comps := make([][]int64, len(raw))
	for i, c := range raw {
		ids := make([]int64, len(c))
		for j, n := range c {
			ids[j] = n.ID()
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		comps[i] = ids
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

type edgeKey struct{ a, b int64 }

func key(u, v int64) edgeKey {
	if u > v {
		u, v = v, u
	}
	return edgeKey{u, v}
}
