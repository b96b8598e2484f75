package domain

import "fmt"

// Mask is a row-major boolean raster marking flooded cells.
type Mask struct {
	Rows, Cols int
	Cells      []bool
}

func NewMask(rows, cols int) Mask {
	return Mask{Rows: rows, Cols: cols, Cells: make([]bool, rows*cols)}
}

func (m Mask) At(row, col int) bool { return m.Cells[row*m.Cols+col] }

func (m Mask) Set(row, col int, v bool) { m.Cells[row*m.Cols+col] = v }

func (m Mask) Count() int {
	n := 0
	for _, c := range m.Cells {
		if c {
			n++
		}
	}
	return n
}

// Bytes encodes the mask one byte per cell, for hashing.
func (m Mask) Bytes() []byte {
	b := make([]byte, len(m.Cells))
	for i, c := range m.Cells {
		if c {
			b[i] = 1
		}
	}
	return b
}

// FloodResult is the output of a flood model: extent plus depth in metres.
type FloodResult struct {
	Mask  Mask
	Depth []float64
}

func newFloodResult(rows, cols int) FloodResult {
	return FloodResult{Mask: NewMask(rows, cols), Depth: make([]float64, rows*cols)}
}

// Validate checks the shape and the depth/mask consistency rules: depth is
// never negative, positive depth only on flooded cells, and dry cells have
// zero depth.
func (r FloodResult) Validate() error {
	n := r.Mask.Rows * r.Mask.Cols
	if len(r.Mask.Cells) != n || len(r.Depth) != n {
		return fmt.Errorf("%w: mask %d cells, depth %d cells", ErrShapeMismatch, len(r.Mask.Cells), len(r.Depth))
	}
	for i, d := range r.Depth {
		if d < 0 {
			return fmt.Errorf("negative depth %g at cell %d", d, i)
		}
		if d > 0 && !r.Mask.Cells[i] {
			return fmt.Errorf("positive depth %g on dry cell %d", d, i)
		}
	}
	return nil
}
