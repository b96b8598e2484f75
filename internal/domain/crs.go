package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// Kind is the closed set of coordinate reference system families the
// calculators distinguish between.
type Kind int

const (
	KindUnknown Kind = iota
	Geographic
	Projected
)

func (k Kind) String() string {
	switch k {
	case Geographic:
		return "geographic"
	case Projected:
		return "projected"
	default:
		return "unknown"
	}
}

// webMercatorDef is the proj4 definition of EPSG:3857.
const webMercatorDef = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

// CRS is a named spatial reference. The zero value means "unknown".
type CRS struct {
	Name string
	sr   *proj.SR
}

// ParseCRS resolves an EPSG identifier ("EPSG:4326", "4326") or a proj4
// definition string into a CRS.
func ParseCRS(name string) (CRS, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CRS{}, ErrMissingCRS
	}
	def, err := proj4Definition(name)
	if err != nil {
		return CRS{}, err
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: parse %q: %v", ErrMissingCRS, name, err)
	}
	return CRS{Name: canonicalName(name), sr: sr}, nil
}

// MustParseCRS is ParseCRS for static definitions; it panics on error.
func MustParseCRS(name string) CRS {
	c, err := ParseCRS(name)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCRS wraps an already parsed spatial reference, e.g. one read from a
// shapefile .prj.
func NewCRS(name string, sr *proj.SR) (CRS, error) {
	if sr == nil {
		return CRS{}, ErrMissingCRS
	}
	if name == "" {
		name = sr.Name
	}
	return CRS{Name: name, sr: sr}, nil
}

// UTMZoneFor returns the WGS84 UTM zone covering the lon/lat point.
func UTMZoneFor(lon, lat float64) CRS {
	zone := int(math.Floor((lon+180)/6)) + 1
	zone = min(max(zone, 1), 60)
	code := 32600 + zone
	if lat < 0 {
		code = 32700 + zone
	}
	return MustParseCRS("EPSG:" + strconv.Itoa(code))
}

func (c CRS) IsZero() bool { return c.sr == nil }

func (c CRS) Kind() Kind {
	switch {
	case c.sr == nil:
		return KindUnknown
	case c.sr.Name == "longlat":
		return Geographic
	default:
		return Projected
	}
}

// ToMeter is the size of one projected unit in metres.
func (c CRS) ToMeter() float64 {
	if c.sr == nil || c.sr.ToMeter == 0 {
		return 1
	}
	return c.sr.ToMeter
}

// Equal reports whether both references carry the same name. Two unknown
// references are never equal.
func (c CRS) Equal(o CRS) bool {
	return !c.IsZero() && !o.IsZero() && c.Name == o.Name
}

// TransformTo returns a coordinate transformer from c into dst.
func (c CRS) TransformTo(dst CRS) (proj.Transformer, error) {
	if c.IsZero() || dst.IsZero() {
		return nil, ErrMissingCRS
	}
	tr, err := c.sr.NewTransform(dst.sr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: %v", ErrCRSMismatch, c.Name, dst.Name, err)
	}
	return tr, nil
}

func (c CRS) String() string {
	if c.IsZero() {
		return "<unknown>"
	}
	return c.Name
}

func canonicalName(name string) string {
	if strings.HasPrefix(name, "+") {
		return name
	}
	code := strings.TrimPrefix(strings.ToUpper(name), "EPSG:")
	return "EPSG:" + code
}

func proj4Definition(name string) (string, error) {
	if strings.HasPrefix(name, "+") {
		return name, nil
	}
	codeStr := strings.TrimPrefix(strings.ToUpper(name), "EPSG:")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return "", fmt.Errorf("%w: unrecognized crs %q", ErrMissingCRS, name)
	}
	switch {
	case code == 4326:
		return "+proj=longlat +datum=WGS84 +no_defs", nil
	case code == 4269:
		return "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs", nil
	case code == 3857 || code == 900913:
		return webMercatorDef, nil
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	}
	return "", fmt.Errorf("%w: unsupported epsg code %d", ErrMissingCRS, code)
}
