// Package shapefile loads road and facility layers from ESRI shapefiles.
// The layer CRS comes from the sidecar .prj file; a layer without one is
// returned with an unknown CRS and rejected later if it has features.
package shapefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/couchcryptid/flood-exposure/internal/config"
	"github.com/couchcryptid/flood-exposure/internal/domain"
)

// Attribute columns read for facilities.
const (
	FacilityNameField = "name"
	FacilityTypeField = "type"
)

// LoadRoads reads polyline features, taking the road category from
// categoryField. Multi-part lines become one feature per part.
func LoadRoads(path, categoryField string) (*domain.RoadLayer, error) {
	dec, crs, err := open(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	layer := &domain.RoadLayer{Name: layerName(path), CRS: crs}
	for row := 0; ; row++ {
		g, fields, more := dec.DecodeRowFields(categoryField)
		if !more {
			break
		}
		lines, err := lineParts(g)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		category := roadCategory(fields[categoryField])
		for _, ls := range lines {
			layer.Features = append(layer.Features, domain.RoadFeature{Geometry: ls, Category: category})
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return layer, nil
}

// LoadFacilities reads point features into a layer with the given label.
func LoadFacilities(label, path string) (*domain.PointLayer, error) {
	dec, crs, err := open(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	if label == "" {
		label = layerName(path)
	}
	layer := &domain.PointLayer{Label: label, CRS: crs}
	for row := 0; ; row++ {
		g, fields, more := dec.DecodeRowFields(FacilityNameField, FacilityTypeField)
		if !more {
			break
		}
		pts, err := pointParts(g)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		for _, p := range pts {
			layer.Features = append(layer.Features, domain.Facility{
				Location: p,
				Name:     strings.TrimSpace(fields[FacilityNameField]),
				Type:     strings.TrimSpace(fields[FacilityTypeField]),
			})
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return layer, nil
}

func open(path string) (*shp.Decoder, domain.CRS, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, domain.CRS{}, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	if _, err := os.Stat(prj); errors.Is(err, os.ErrNotExist) {
		return dec, domain.CRS{}, nil
	}
	sr, err := dec.SR()
	if err != nil {
		dec.Close()
		return nil, domain.CRS{}, fmt.Errorf("%w: read %s: %v", domain.ErrMissingCRS, prj, err)
	}
	crs, err := domain.NewCRS("prj:"+filepath.Base(prj), sr)
	if err != nil {
		dec.Close()
		return nil, domain.CRS{}, err
	}
	return dec, crs, nil
}

func layerName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func roadCategory(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.UnknownCategory
	}
	return v
}

// lineParts flattens a polyline geometry into its parts. Parts with fewer
// than two vertices are dropped.
func lineParts(g geom.Geom) ([]geom.LineString, error) {
	var parts []geom.LineString
	switch t := g.(type) {
	case geom.LineString:
		parts = []geom.LineString{t}
	case geom.MultiLineString:
		parts = t
	default:
		return nil, fmt.Errorf("road geometry must be a polyline, got %T", g)
	}
	out := parts[:0:0]
	for _, ls := range parts {
		if len(ls) >= 2 {
			out = append(out, ls)
		}
	}
	return out, nil
}

func pointParts(g geom.Geom) ([]geom.Point, error) {
	switch t := g.(type) {
	case geom.Point:
		return []geom.Point{t}, nil
	case *geom.Point:
		return []geom.Point{*t}, nil
	case geom.MultiPoint:
		return t, nil
	default:
		return nil, fmt.Errorf("facility geometry must be a point, got %T", g)
	}
}

// LoadLayers reads the configured road and facility shapefiles. Unset paths
// are skipped.
func LoadLayers(cfg *config.Config) (domain.Layers, error) {
	var layers domain.Layers
	if cfg.RoadsPath != "" {
		roads, err := LoadRoads(cfg.RoadsPath, cfg.RoadCategoryField)
		if err != nil {
			return domain.Layers{}, err
		}
		layers.Roads = roads
	}
	for _, fl := range cfg.FacilityLayers {
		pl, err := LoadFacilities(fl.Label, fl.Path)
		if err != nil {
			return domain.Layers{}, err
		}
		layers.Points = append(layers.Points, *pl)
	}
	return layers, nil
}
