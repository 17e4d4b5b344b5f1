package kwpdf

import (
	"fmt"
	"math"
)

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3      = PageSize{Width: 29.7, Height: 42.0}
	A4      = PageSize{Width: 21.0, Height: 29.7}
	A5      = PageSize{Width: 14.8, Height: 21.0}
	Letter  = PageSize{Width: 21.59, Height: 27.94}
	Legal   = PageSize{Width: 21.59, Height: 35.56}
	Tabloid = PageSize{Width: 27.94, Height: 43.18}
)

// PageSizes maps lower-case paper names to their sizes.
var PageSizes = map[string]PageSize{
	"a3":      A3,
	"a4":      A4,
	"a5":      A5,
	"letter":  Letter,
	"legal":   Legal,
	"tabloid": Tabloid,
}

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// String returns "portrait" or "landscape".
func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// PageGeometry is the fixed size of every output page, in PDF points
// (1/72 inch). It is constant for a whole document.
type PageGeometry struct {
	Width  float64
	Height float64
}

// A4Geometry is A4 portrait in points, the default output page.
var A4Geometry = A4.Geometry(Portrait)

// Geometry returns the page size in points for the given orientation.
func (s PageSize) Geometry(o Orientation) PageGeometry {
	w, h := cmToPoints(s.Width), cmToPoints(s.Height)
	if o == Landscape {
		w, h = h, w
	}
	return PageGeometry{Width: w, Height: h}
}

// String formats the geometry as "W x H pt".
func (g PageGeometry) String() string {
	return fmt.Sprintf("%.2f x %.2f pt", g.Width, g.Height)
}

// validate rejects non-positive or non-finite dimensions.
func (g PageGeometry) validate() error {
	if !positiveFinite(g.Width) || !positiveFinite(g.Height) {
		return fmt.Errorf("%w: page must have positive width and height, got %s", ErrGeometry, g)
	}
	return nil
}

// cmToPoints converts centimeters to PDF points.
func cmToPoints(cm float64) float64 {
	return cm / 2.54 * 72
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
