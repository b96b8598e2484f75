package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PolygonKey identifies the inputs of a polygon build. Equal keys imply equal
// polygon sets.
type PolygonKey struct {
	MaskHash  uint64
	Rows      int
	Cols      int
	Transform [6]float64
	CRS       string
}

func NewPolygonKey(mask Mask, t Transform, crs CRS) PolygonKey {
	return PolygonKey{
		MaskHash:  xxhash.Sum64(mask.Bytes()),
		Rows:      mask.Rows,
		Cols:      mask.Cols,
		Transform: t.Params(),
		CRS:       crs.Name,
	}
}

func (k PolygonKey) String() string {
	return fmt.Sprintf("%016x|%dx%d|%v|%s", k.MaskHash, k.Rows, k.Cols, k.Transform, k.CRS)
}
