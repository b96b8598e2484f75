package domain

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"
)

const testUTM = "EPSG:32633"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unitTransform is a north-up grid of 1 m cells whose top-left corner is at
// (0, rows).
func unitTransform(rows int) Transform {
	return NewNorthUpTransform(0, float64(rows), 1, 1)
}

// rampGrid is a 10x10 grid in a projected CRS whose elevation equals the row
// index (0 at the top, 9 at the bottom).
func rampGrid(t *testing.T) *ElevationGrid {
	t.Helper()
	values := make([]float64, 100)
	for r := range 10 {
		for c := range 10 {
			values[r*10+c] = float64(r)
		}
	}
	g, err := NewElevationGrid(10, 10, values, unitTransform(10), MustParseCRS(testUTM), nil)
	require.NoError(t, err)
	return g
}

func maskFrom(rows ...string) Mask {
	m := NewMask(len(rows), len(rows[0]))
	for r, line := range rows {
		for c, ch := range line {
			m.Set(r, c, ch == '#')
		}
	}
	return m
}

func ptr[T any](v T) *T { return &v }

func geomPoint(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }
