package domain

import "errors"

// Sentinel errors returned by the flood and exposure components. Callers wrap
// them with context and match them with errors.Is.
var (
	ErrMissingCRS       = errors.New("coordinate reference system cannot be determined")
	ErrEmptyGrid        = errors.New("elevation grid has no valid cells")
	ErrInsufficientData = errors.New("insufficient data for estimate")
	ErrShapeMismatch    = errors.New("array shapes do not match")
	ErrCRSMismatch      = errors.New("layer cannot be reprojected to grid crs")
	ErrInvalidTransform = errors.New("invalid raster transform")
	ErrInvalidScenario  = errors.New("invalid scenario")
)
