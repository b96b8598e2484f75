package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_ApplyInvert(t *testing.T) {
	tr := Transform{A: 30, B: 2, C: 500000, D: -1, E: -30, F: 4100000}
	x, y := tr.Apply(12.5, 7.25)
	col, row := tr.Invert(x, y)
	assert.InDelta(t, 12.5, col, 1e-9)
	assert.InDelta(t, 7.25, row, 1e-9)
}

func TestTransform_Validate(t *testing.T) {
	assert.NoError(t, unitTransform(10).Validate())
	assert.ErrorIs(t, Transform{A: 0, E: -1}.Validate(), ErrInvalidTransform)
	assert.ErrorIs(t, Transform{A: 1, E: math.NaN()}.Validate(), ErrInvalidTransform)
	assert.ErrorIs(t, Transform{A: 1, B: 1, D: 1, E: 1}.Validate(), ErrInvalidTransform)
}

func TestNewElevationGrid_Validation(t *testing.T) {
	crs := MustParseCRS(testUTM)

	_, err := NewElevationGrid(2, 2, []float64{1, 2, 3}, unitTransform(2), crs, nil)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NewElevationGrid(2, 2, []float64{1, 2, 3, 4}, unitTransform(2), CRS{}, nil)
	require.ErrorIs(t, err, ErrMissingCRS)

	_, err = NewElevationGrid(2, 2, []float64{1, 2, 3, 4}, Transform{A: 1}, crs, nil)
	require.ErrorIs(t, err, ErrInvalidTransform)
}

func TestElevationGrid_IsValid(t *testing.T) {
	g, err := NewElevationGrid(1, 3, []float64{1, math.NaN(), -9999}, unitTransform(1), MustParseCRS(testUTM), ptr(-9999.0))
	require.NoError(t, err)

	assert.True(t, g.IsValid(0))
	assert.False(t, g.IsValid(1))
	assert.False(t, g.IsValid(2))
	assert.Equal(t, []float64{1}, g.ValidValues())
}

func TestPixelAt(t *testing.T) {
	tr := unitTransform(10)

	r, c, ok := PixelAt(tr, 10, 10, 2.5, 9.5)
	require.True(t, ok)
	assert.Equal(t, 0, r)
	assert.Equal(t, 2, c)

	r, c, ok = PixelAt(tr, 10, 10, 9.99, 0.01)
	require.True(t, ok)
	assert.Equal(t, 9, r)
	assert.Equal(t, 9, c)

	_, _, ok = PixelAt(tr, 10, 10, -0.5, 5)
	assert.False(t, ok)
	_, _, ok = PixelAt(tr, 10, 10, 5, 10.5)
	assert.False(t, ok)
}

func TestParseCRS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		kind Kind
	}{
		{"geographic epsg", "EPSG:4326", "EPSG:4326", Geographic},
		{"bare code", "4326", "EPSG:4326", Geographic},
		{"lower case", "epsg:32633", "EPSG:32633", Projected},
		{"southern utm", "EPSG:32755", "EPSG:32755", Projected},
		{"web mercator", "EPSG:3857", "EPSG:3857", Projected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCRS(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
			assert.Equal(t, tt.kind, c.Kind())
		})
	}
}

func TestParseCRS_Errors(t *testing.T) {
	_, err := ParseCRS("")
	require.ErrorIs(t, err, ErrMissingCRS)

	_, err = ParseCRS("EPSG:99999")
	require.ErrorIs(t, err, ErrMissingCRS)

	_, err = ParseCRS("not a crs")
	require.ErrorIs(t, err, ErrMissingCRS)
}

func TestCRS_Equal(t *testing.T) {
	assert.True(t, MustParseCRS("EPSG:4326").Equal(MustParseCRS("4326")))
	assert.False(t, MustParseCRS("EPSG:4326").Equal(MustParseCRS(testUTM)))
	assert.False(t, CRS{}.Equal(CRS{}))
}

func TestUTMZoneFor(t *testing.T) {
	assert.Equal(t, "EPSG:32614", UTMZoneFor(-98, 30).Name)
	assert.Equal(t, "EPSG:32755", UTMZoneFor(147, -35).Name)
	assert.Equal(t, "EPSG:32601", UTMZoneFor(-180, 10).Name)
	assert.Equal(t, "EPSG:32660", UTMZoneFor(180, 10).Name)
}
