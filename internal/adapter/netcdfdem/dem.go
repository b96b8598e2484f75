// Package netcdfdem loads and writes elevation grids stored as NetCDF files.
//
// A DEM file holds one 2D elevation variable indexed by (y, x) plus two 1D
// coordinate variables with cell-centre coordinates. Files with lat/lon axes
// are read as EPSG:4326. Files with y/x axes must name their CRS in a "crs",
// "spatial_ref" or "epsg_code" text attribute on the elevation variable or
// the dataset.
package netcdfdem

import (
	"errors"
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/couchcryptid/flood-exposure/internal/domain"
)

// DefaultVariable is tried first when no variable name is configured.
const DefaultVariable = "elevation"

// spacingTolerance is the relative deviation allowed between axis steps.
const spacingTolerance = 1e-6

var (
	dataNames      = []string{DefaultVariable, "z", "Band1", "height", "data"}
	geographicAxes = [][2]string{{"lat", "lon"}, {"latitude", "longitude"}}
	projectedAxes  = [][2]string{{"y", "x"}, {"northing", "easting"}}
	crsAttrs       = []string{"crs", "spatial_ref", "epsg_code"}
)

// LoadDEM reads the named elevation variable (or the first known name when
// variable is empty) into a north-up grid.
func LoadDEM(path, variable string) (*domain.ElevationGrid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open dem %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	names := dataNames
	if variable != "" {
		names = []string{variable}
	}
	dataVar, err := findVar(nc, names)
	if err != nil {
		return nil, err
	}

	ys, xs, crs, err := readAxes(nc, dataVar)
	if err != nil {
		return nil, err
	}
	rows, cols := len(ys), len(xs)

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: expected 2D elevation, got %dD", domain.ErrShapeMismatch, len(dims))
	}
	dimRows, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	dimCols, err := dims[1].Len()
	if err != nil {
		return nil, err
	}
	if int(dimRows) != rows || int(dimCols) != cols {
		return nil, fmt.Errorf("%w: elevation is %dx%d but axes are %dx%d",
			domain.ErrShapeMismatch, dimRows, dimCols, rows, cols)
	}

	values, err := readFloats(dataVar, rows*cols)
	if err != nil {
		return nil, fmt.Errorf("read elevation: %w", err)
	}

	dx, err := axisStep(xs)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	if dx < 0 {
		return nil, fmt.Errorf("%w: x axis must increase", domain.ErrInvalidTransform)
	}
	dy, err := axisStep(ys)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	if dy > 0 {
		flipRows(values, rows, cols)
		reverse(ys)
		dy = -dy
	}

	t := domain.NewNorthUpTransform(xs[0]-dx/2, ys[0]-dy/2, dx, -dy)

	var noData *float64
	if fill, ok := fillValue(dataVar); ok {
		noData = &fill
	}
	return domain.NewElevationGrid(rows, cols, values, t, crs, noData)
}

// WriteDEM stores a north-up grid with cell-centre axes. Geographic grids get
// lat/lon axes; other grids get y/x axes and a crs attribute.
func WriteDEM(path, variable string, g *domain.ElevationGrid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.CRS.IsZero() {
		return domain.ErrMissingCRS
	}
	if g.Transform.B != 0 || g.Transform.D != 0 || g.Transform.E >= 0 {
		return fmt.Errorf("%w: only north-up grids can be written", domain.ErrInvalidTransform)
	}
	if variable == "" {
		variable = DefaultVariable
	}

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("create dem %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	axes := projectedAxes[0]
	if g.CRS.Kind() == domain.Geographic {
		axes = geographicAxes[0]
	}
	yDim, err := nc.AddDim(axes[0], uint64(g.Rows))
	if err != nil {
		return err
	}
	xDim, err := nc.AddDim(axes[1], uint64(g.Cols))
	if err != nil {
		return err
	}
	yVar, err := nc.AddVar(axes[0], netcdf.DOUBLE, []netcdf.Dim{yDim})
	if err != nil {
		return err
	}
	xVar, err := nc.AddVar(axes[1], netcdf.DOUBLE, []netcdf.Dim{xDim})
	if err != nil {
		return err
	}
	zVar, err := nc.AddVar(variable, netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	if err != nil {
		return err
	}
	if g.NoData != nil {
		if err := zVar.Attr("_FillValue").WriteFloat64s([]float64{*g.NoData}); err != nil {
			return fmt.Errorf("write fill value: %w", err)
		}
	}
	if g.CRS.Kind() != domain.Geographic {
		if err := zVar.Attr("crs").WriteBytes([]byte(g.CRS.Name)); err != nil {
			return fmt.Errorf("write crs: %w", err)
		}
	}
	if err := nc.EndDef(); err != nil {
		return err
	}

	ys := make([]float64, g.Rows)
	for r := range ys {
		_, ys[r] = g.Transform.Apply(0.5, float64(r)+0.5)
	}
	xs := make([]float64, g.Cols)
	for c := range xs {
		xs[c], _ = g.Transform.Apply(float64(c)+0.5, 0.5)
	}
	if err := yVar.WriteFloat64s(ys); err != nil {
		return err
	}
	if err := xVar.WriteFloat64s(xs); err != nil {
		return err
	}
	return zVar.WriteFloat64s(g.Values)
}

func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("%w: elevation variable not found (tried: %v)", domain.ErrEmptyGrid, names)
}

// readAxes returns the y and x coordinates and the CRS they are expressed in.
func readAxes(nc netcdf.Dataset, dataVar netcdf.Var) (ys, xs []float64, crs domain.CRS, err error) {
	for _, pair := range geographicAxes {
		ys, xs, err = readAxisPair(nc, pair)
		if err == nil {
			crs, err = domain.ParseCRS("EPSG:4326")
			return ys, xs, crs, err
		}
	}
	for _, pair := range projectedAxes {
		ys, xs, err = readAxisPair(nc, pair)
		if err != nil {
			continue
		}
		name, ok := textAttr(dataVar, nc)
		if !ok {
			return nil, nil, domain.CRS{}, fmt.Errorf("%w: projected dem has no %v attribute", domain.ErrMissingCRS, crsAttrs)
		}
		crs, err = domain.ParseCRS(name)
		return ys, xs, crs, err
	}
	return nil, nil, domain.CRS{}, fmt.Errorf("%w: no coordinate axes found", domain.ErrInvalidTransform)
}

func readAxisPair(nc netcdf.Dataset, pair [2]string) (ys, xs []float64, err error) {
	yVar, err := nc.Var(pair[0])
	if err != nil {
		return nil, nil, err
	}
	xVar, err := nc.Var(pair[1])
	if err != nil {
		return nil, nil, err
	}
	if ys, err = readAxis(yVar); err != nil {
		return nil, nil, err
	}
	if xs, err = readAxis(xVar); err != nil {
		return nil, nil, err
	}
	return ys, xs, nil
}

func readAxis(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D axis, got %dD", len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFloats(v, int(n))
}

// readFloats reads a numeric variable of n values as float64.
func readFloats(v netcdf.Var, n int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	switch t {
	case netcdf.DOUBLE:
		err = v.ReadFloat64s(out)
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		err = v.ReadFloat32s(tmp)
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, n)
		err = v.ReadInt32s(tmp)
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, n)
		err = v.ReadInt16s(tmp)
		for i, val := range tmp {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if n, err := a.Len(); err != nil || n == 0 {
			continue
		}
		buf64 := make([]float64, 1)
		if err := a.ReadFloat64s(buf64); err == nil {
			return buf64[0], true
		}
		buf32 := make([]float32, 1)
		if err := a.ReadFloat32s(buf32); err == nil {
			return float64(buf32[0]), true
		}
		bufi := make([]int32, 1)
		if err := a.ReadInt32s(bufi); err == nil {
			return float64(bufi[0]), true
		}
	}
	return 0, false
}

// textAttr finds a CRS name on the variable first, then on the dataset.
func textAttr(v netcdf.Var, nc netcdf.Dataset) (string, bool) {
	for _, name := range crsAttrs {
		if s, ok := readText(v.Attr(name)); ok {
			return s, true
		}
		if s, ok := readText(nc.Attr(name)); ok {
			return s, true
		}
	}
	return "", false
}

func readText(a netcdf.Attr) (string, bool) {
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err == nil {
		return string(trimNul(buf)), true
	}
	code := make([]int32, 1)
	if err := a.ReadInt32s(code); err == nil {
		return fmt.Sprintf("EPSG:%d", code[0]), true
	}
	return "", false
}

func trimNul(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

var errIrregular = errors.New("irregular axis spacing")

// axisStep returns the uniform step of a cell-centre axis.
func axisStep(axis []float64) (float64, error) {
	if len(axis) < 2 {
		return 0, fmt.Errorf("%w: axis needs at least 2 values", domain.ErrInsufficientData)
	}
	step := (axis[len(axis)-1] - axis[0]) / float64(len(axis)-1)
	if step == 0 || math.IsNaN(step) {
		return 0, errIrregular
	}
	for i := 1; i < len(axis); i++ {
		d := axis[i] - axis[i-1]
		if math.Abs(d-step) > spacingTolerance*math.Abs(step) {
			return 0, fmt.Errorf("%w: step %d is %g, expected %g", errIrregular, i, d, step)
		}
	}
	return step, nil
}

func flipRows(values []float64, rows, cols int) {
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := values[top*cols : (top+1)*cols]
		b := values[bottom*cols : (bottom+1)*cols]
		for c := range a {
			a[c], b[c] = b[c], a[c]
		}
	}
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
