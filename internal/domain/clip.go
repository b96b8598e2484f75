package domain

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
)

const paramEps = 1e-12

// clipLine returns the parts of ls inside the indexed polygons. Each segment
// is split at every crossing with a polygon ring and the sub-segments whose
// midpoints are inside are kept; consecutive kept pieces are joined.
func clipLine(ls geom.LineString, ix *polygonIndex) []geom.LineString {
	var pieces []geom.LineString
	var cur geom.LineString
	flush := func() {
		if len(cur) >= 2 {
			pieces = append(pieces, cur)
		}
		cur = nil
	}

	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		sb := a.Bounds()
		sb.Extend(b.Bounds())
		cands := ix.search(sb)
		if len(cands) == 0 {
			flush()
			continue
		}

		ts := []float64{0, 1}
		for _, poly := range cands {
			for _, ring := range poly {
				for k := range ring {
					ts = append(ts, segmentParams(a, b, ring[k], ring[(k+1)%len(ring)])...)
				}
			}
		}
		sort.Float64s(ts)

		for j := 0; j+1 < len(ts); j++ {
			t0, t1 := ts[j], ts[j+1]
			if t1-t0 <= paramEps {
				continue
			}
			if !insideAny(lerp(a, b, (t0+t1)/2), cands) {
				flush()
				continue
			}
			if cur == nil {
				cur = geom.LineString{lerp(a, b, t0)}
			}
			cur = append(cur, lerp(a, b, t1))
		}
	}
	flush()
	return pieces
}

// segmentParams returns the positions along a->b (0..1) where it meets p->q.
// Collinear overlaps contribute the projections of p and q.
func segmentParams(a, b, p, q geom.Point) []float64 {
	rx, ry := b.X-a.X, b.Y-a.Y
	sx, sy := q.X-p.X, q.Y-p.Y
	if sx == 0 && sy == 0 {
		return nil
	}
	wx, wy := p.X-a.X, p.Y-a.Y
	denom := rx*sy - ry*sx
	scale := math.Hypot(rx, ry) * math.Hypot(sx, sy)

	if math.Abs(denom) <= paramEps*scale {
		if math.Abs(wx*ry-wy*rx) > paramEps*scale {
			return nil
		}
		rr := rx*rx + ry*ry
		var out []float64
		for _, e := range []geom.Point{p, q} {
			t := ((e.X-a.X)*rx + (e.Y-a.Y)*ry) / rr
			if t > 0 && t < 1 {
				out = append(out, t)
			}
		}
		return out
	}

	t := (wx*sy - wy*sx) / denom
	u := (wx*ry - wy*rx) / denom
	if t <= 0 || t >= 1 || u < -paramEps || u > 1+paramEps {
		return nil
	}
	return []float64{t}
}

func lerp(a, b geom.Point, t float64) geom.Point {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return geom.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}
