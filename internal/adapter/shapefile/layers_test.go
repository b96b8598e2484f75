package shapefile

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-exposure/internal/domain"
)

func TestLineParts(t *testing.T) {
	single := geom.LineString{{X: 0, Y: 0}, {X: 1, Y: 0}}
	parts, err := lineParts(single)
	require.NoError(t, err)
	assert.Len(t, parts, 1)

	multi := geom.MultiLineString{
		{{X: 0, Y: 0}, {X: 1, Y: 0}},
		{{X: 5, Y: 5}},
		{{X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 2}},
	}
	parts, err = lineParts(multi)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], 3)

	_, err = lineParts(geom.Point{X: 1, Y: 1})
	require.Error(t, err)
}

func TestPointParts(t *testing.T) {
	pts, err := pointParts(geom.Point{X: 1, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, []geom.Point{{X: 1, Y: 2}}, pts)

	pts, err = pointParts(geom.MultiPoint{{X: 1, Y: 2}, {X: 3, Y: 4}})
	require.NoError(t, err)
	assert.Len(t, pts, 2)

	_, err = pointParts(geom.LineString{{X: 0, Y: 0}, {X: 1, Y: 0}})
	require.Error(t, err)
}

func TestRoadCategory(t *testing.T) {
	assert.Equal(t, "primary", roadCategory(" primary "))
	assert.Equal(t, domain.UnknownCategory, roadCategory(""))
	assert.Equal(t, domain.UnknownCategory, roadCategory("   "))
}

func TestLayerName(t *testing.T) {
	assert.Equal(t, "roads", layerName("/data/layers/roads.shp"))
}

func TestLoadRoadsMissingFile(t *testing.T) {
	_, err := LoadRoads(t.TempDir()+"/missing.shp", "highway")
	require.Error(t, err)
}
