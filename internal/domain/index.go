package domain

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// polygonIndex is an R-tree over flood polygons.
type polygonIndex struct {
	tree *rtree.Rtree
	n    int
}

func newPolygonIndex(polys []geom.Polygon) *polygonIndex {
	tree := rtree.NewTree(25, 50)
	for _, p := range polys {
		tree.Insert(p)
	}
	return &polygonIndex{tree: tree, n: len(polys)}
}

func (ix *polygonIndex) search(b *geom.Bounds) []geom.Polygon {
	if ix.n == 0 {
		return nil
	}
	hits := ix.tree.SearchIntersect(b)
	out := make([]geom.Polygon, 0, len(hits))
	for _, h := range hits {
		if p, ok := h.(geom.Polygon); ok {
			out = append(out, p)
		}
	}
	return out
}

// contains reports whether p lies strictly inside one of the polygons.
// Points on a boundary are not contained.
func (ix *polygonIndex) contains(p geom.Point) bool {
	return insideAny(p, ix.search(p.Bounds()))
}

func insideAny(p geom.Point, polys []geom.Polygon) bool {
	for _, poly := range polys {
		if p.Within(poly) == geom.Inside {
			return true
		}
	}
	return false
}
