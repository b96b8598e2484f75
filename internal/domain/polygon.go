package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// PolygonSet is the vector form of a flood mask in the grid CRS. Outer rings
// wind counter-clockwise and holes clockwise; every ring is closed.
type PolygonSet struct {
	CRS      CRS
	Polygons []geom.Polygon
}

func (s PolygonSet) IsEmpty() bool { return len(s.Polygons) == 0 }

// Area is the total polygon area in CRS units squared, holes excluded.
func (s PolygonSet) Area() float64 {
	var total float64
	for _, p := range s.Polygons {
		for i, ring := range p {
			a := math.Abs(signedArea(ring))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return total
}

func (s PolygonSet) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, p := range s.Polygons {
		b.Extend(p.Bounds())
	}
	return b
}

// PolygonBuilder turns a flood mask into polygons.
type PolygonBuilder interface {
	BuildPolygons(mask Mask, t Transform, crs CRS) (PolygonSet, error)
}

// Vectorizer traces the boundaries of 8-connected flooded regions along cell
// edges. Rings are cut wherever they pass through a vertex twice, whether the
// contact is between wet or dry cells, so every ring is simple. A dry pocket
// pinched off an outer boundary becomes a hole touching its shell.
type Vectorizer struct{}

func NewVectorizer() Vectorizer { return Vectorizer{} }

func (Vectorizer) BuildPolygons(mask Mask, t Transform, crs CRS) (PolygonSet, error) {
	if mask.Rows < 0 || mask.Cols < 0 || len(mask.Cells) != mask.Rows*mask.Cols {
		return PolygonSet{}, fmt.Errorf("%w: mask %dx%d with %d cells", ErrShapeMismatch, mask.Rows, mask.Cols, len(mask.Cells))
	}
	if crs.IsZero() {
		return PolygonSet{}, ErrMissingCRS
	}
	if err := t.Validate(); err != nil {
		return PolygonSet{}, err
	}

	set := PolygonSet{CRS: crs}
	reverse := t.Determinant() < 0
	for _, cells := range labelComponents(mask) {
		for _, poly := range traceComponent(mask, cells) {
			set.Polygons = append(set.Polygons, toWorld(poly, t, reverse))
		}
	}
	return set, nil
}

type gridPt struct{ x, y int }

type cellEdge struct{ from, to gridPt }

// pixelPolygon is a polygon in pixel-corner coordinates; rings are open.
type pixelPolygon [][]gridPt

var neighbours8 = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

// labelComponents groups flooded cells into 8-connected components, ordered
// by their first cell in row-major order. Cell indices within a component
// are sorted.
func labelComponents(mask Mask) [][]int {
	seen := make([]bool, len(mask.Cells))
	var comps [][]int
	for start, flooded := range mask.Cells {
		if !flooded || seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for head := 0; head < len(queue); head++ {
			r, c := queue[head]/mask.Cols, queue[head]%mask.Cols
			for _, d := range neighbours8 {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= mask.Rows || nc < 0 || nc >= mask.Cols {
					continue
				}
				j := nr*mask.Cols + nc
				if mask.Cells[j] && !seen[j] {
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		sort.Ints(queue)
		comps = append(comps, queue)
	}
	return comps
}

// boundaryEdges emits the cell sides that separate the component from dry
// cells, oriented so the flooded cell lies to the right when walking in
// (col, row) space.
func boundaryEdges(mask Mask, cells []int) []cellEdge {
	flooded := func(r, c int) bool {
		return r >= 0 && r < mask.Rows && c >= 0 && c < mask.Cols && mask.At(r, c)
	}
	var edges []cellEdge
	for _, idx := range cells {
		r, c := idx/mask.Cols, idx%mask.Cols
		if !flooded(r-1, c) {
			edges = append(edges, cellEdge{gridPt{c, r}, gridPt{c + 1, r}})
		}
		if !flooded(r, c+1) {
			edges = append(edges, cellEdge{gridPt{c + 1, r}, gridPt{c + 1, r + 1}})
		}
		if !flooded(r+1, c) {
			edges = append(edges, cellEdge{gridPt{c + 1, r + 1}, gridPt{c, r + 1}})
		}
		if !flooded(r, c-1) {
			edges = append(edges, cellEdge{gridPt{c, r + 1}, gridPt{c, r}})
		}
	}
	return edges
}

func turn(a, b cellEdge) int {
	ax, ay := a.to.x-a.from.x, a.to.y-a.from.y
	bx, by := b.to.x-b.from.x, b.to.y-b.from.y
	return ax*by - ay*bx
}

// traceRings chains edges into closed rings. Where two rings meet at a
// vertex the sharpest turn towards the flooded side wins. A ring may still
// visit a vertex twice; splitRing separates those loops.
func traceRings(edges []cellEdge) [][]gridPt {
	out := make(map[gridPt][]int, len(edges))
	for i, e := range edges {
		out[e.from] = append(out[e.from], i)
	}
	used := make([]bool, len(edges))
	var rings [][]gridPt
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		ring := []gridPt{edges[start].from}
		cur := start
		for {
			next, best := -1, 0
			for _, j := range out[edges[cur].to] {
				if used[j] && j != start {
					continue
				}
				if tr := turn(edges[cur], edges[j]); next == -1 || tr > best {
					next, best = j, tr
				}
			}
			if next == -1 || next == start {
				break
			}
			used[next] = true
			ring = append(ring, edges[next].from)
			cur = next
		}
		rings = append(rings, ring)
	}
	return rings
}

func traceComponent(mask Mask, cells []int) []pixelPolygon {
	rings := traceRings(boundaryEdges(mask, cells))

	var polys []pixelPolygon
	var outerArea []float64
	type hole struct {
		ring   []gridPt
		sample [2]float64
	}
	var holes []hole
	var lobes [][]gridPt
	for _, ring := range rings {
		for _, lobe := range splitRing(ring) {
			if len(lobe) >= 3 {
				lobes = append(lobes, lobe)
			}
		}
	}
	for _, ring := range lobes {
		a := pixelArea(ring)
		if a == 0 {
			continue
		}
		if a > 0 {
			polys = append(polys, pixelPolygon{simplifyRing(ring)})
			outerArea = append(outerArea, a)
			continue
		}
		holes = append(holes, hole{ring: simplifyRing(ring), sample: dryCellCentre(ring)})
	}

	for _, h := range holes {
		owner := -1
		for i, p := range polys {
			if !pixelRingContains(p[0], h.sample[0], h.sample[1]) {
				continue
			}
			if owner == -1 || outerArea[i] < outerArea[owner] {
				owner = i
			}
		}
		if owner >= 0 {
			polys[owner] = append(polys[owner], h.ring)
		}
	}
	return polys
}

// splitRing cuts a ring at repeated vertices into simple loops. Each loop
// keeps its direction, so its sign of area says whether it is a shell or a
// hole.
func splitRing(ring []gridPt) [][]gridPt {
	var lobes [][]gridPt
	stack := make([]gridPt, 0, len(ring))
	pos := make(map[gridPt]int, len(ring))
	for _, p := range ring {
		k, ok := pos[p]
		if !ok {
			pos[p] = len(stack)
			stack = append(stack, p)
			continue
		}
		lobes = append(lobes, append([]gridPt(nil), stack[k:]...))
		for _, q := range stack[k+1:] {
			delete(pos, q)
		}
		stack = stack[:k+1]
	}
	return append(lobes, stack)
}

// dryCellCentre is the centre of the dry cell on the left of the ring's first
// edge; for a hole ring that cell is inside the hole.
func dryCellCentre(ring []gridPt) [2]float64 {
	a, b := ring[0], ring[1%len(ring)]
	dx, dy := float64(b.x-a.x), float64(b.y-a.y)
	mx, my := float64(a.x+b.x)/2, float64(a.y+b.y)/2
	return [2]float64{mx + dy/2, my - dx/2}
}

func pixelArea(ring []gridPt) float64 {
	var s int
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		s += p.x*q.y - q.x*p.y
	}
	return float64(s) / 2
}

func pixelRingContains(ring []gridPt, x, y float64) bool {
	inside := false
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		px, py, qx, qy := float64(p.x), float64(p.y), float64(q.x), float64(q.y)
		if (py > y) != (qy > y) && x < px+(y-py)*(qx-px)/(qy-py) {
			inside = !inside
		}
	}
	return inside
}

// simplifyRing drops vertices that sit in the middle of a straight run.
func simplifyRing(ring []gridPt) []gridPt {
	n := len(ring)
	out := make([]gridPt, 0, n)
	for i, p := range ring {
		prev, next := ring[(i+n-1)%n], ring[(i+1)%n]
		if turn(cellEdge{prev, p}, cellEdge{p, next}) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func toWorld(poly pixelPolygon, t Transform, reverse bool) geom.Polygon {
	out := make(geom.Polygon, 0, len(poly))
	for _, ring := range poly {
		pts := make([]geom.Point, 0, len(ring)+1)
		for _, p := range ring {
			x, y := t.Apply(float64(p.x), float64(p.y))
			pts = append(pts, geom.Point{X: x, Y: y})
		}
		if reverse {
			for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
				pts[i], pts[j] = pts[j], pts[i]
			}
		}
		pts = append(pts, pts[0])
		out = append(out, pts)
	}
	return out
}

// signedArea is the shoelace area of a ring; positive when counter-clockwise.
func signedArea(ring []geom.Point) float64 {
	var s float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		s += p.X*q.Y - q.X*p.Y
	}
	return s / 2
}
