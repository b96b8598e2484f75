package domain

import "math"

// DistanceTransform returns, for every cell, the Euclidean ground distance to
// the nearest feature cell, with cell spacing dx along columns and dy along
// rows. Cells are measured centre to centre. When there are no features every
// distance is +Inf.
//
// Two separable passes of the lower-envelope squared distance transform
// (Felzenszwalb & Huttenlocher) keep the result exact in O(rows*cols).
func DistanceTransform(features []bool, rows, cols int, dx, dy float64) []float64 {
	inf := math.Inf(1)
	sq := make([]float64, rows*cols)
	for i, f := range features {
		if !f {
			sq[i] = inf
		}
	}

	n := max(rows, cols)
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for c := range cols {
		for r := range rows {
			f[r] = sq[r*cols+c]
		}
		envelope1D(f[:rows], dy, d[:rows], v, z)
		for r := range rows {
			sq[r*cols+c] = d[r]
		}
	}
	for r := range rows {
		row := sq[r*cols : (r+1)*cols]
		copy(f, row)
		envelope1D(f[:cols], dx, d[:cols], v, z)
		copy(row, d[:cols])
	}

	for i, s := range sq {
		sq[i] = math.Sqrt(s)
	}
	return sq
}

// envelope1D computes d[q] = min_p (step*(q-p))^2 + f[p]. Entries of f that
// are +Inf never contribute.
func envelope1D(f []float64, step float64, d []float64, v []int, z []float64) {
	inf := math.Inf(1)
	k := -1
	for q := range f {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			v[0] = q
			z[0], z[1] = math.Inf(-1), inf
			continue
		}
		s := intersect(f, v[k], q, step)
		for s <= z[k] {
			k--
			s = intersect(f, v[k], q, step)
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = inf
	}
	if k < 0 {
		for q := range d {
			d[q] = inf
		}
		return
	}
	k = 0
	for q := range f {
		xq := float64(q) * step
		for z[k+1] < xq {
			k++
		}
		delta := xq - float64(v[k])*step
		d[q] = delta*delta + f[v[k]]
	}
}

// intersect is the position where the parabolas rooted at p and q meet.
func intersect(f []float64, p, q int, step float64) float64 {
	xp, xq := float64(p)*step, float64(q)*step
	return ((f[q] + xq*xq) - (f[p] + xp*xp)) / (2 * (xq - xp))
}
