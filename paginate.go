package kwpdf

import (
	"fmt"
	"math"
)

// DefaultOverlap is the vertical distance, in points, that a continuation
// page repeats from the end of the previous page of the same image. It is
// roughly a third of one line of body text in a captured register view.
const DefaultOverlap = 6.0

// epsilon absorbs floating-point noise in page-fit comparisons.
const epsilon = 1e-9

// RenderSlice is one output page worth of a source image: the vertical
// pixel band [StartY, EndY) of Source, drawn at the top of a page with the
// full page width.
type RenderSlice struct {
	Source *SourceImage

	// Index is the position of the slice within its source image and
	// Count the number of slices the image was split into.
	Index int
	Count int

	// StartY and EndY are in the unscaled pixel space of Source.
	StartY float64
	EndY   float64

	// Scale is the page width divided by the source width.
	Scale float64

	// ScaledHeight is the height the slice occupies on its page. It never
	// exceeds the page height.
	ScaledHeight float64
}

// Full reports whether the slice is the whole, unsplit source image.
func (s RenderSlice) Full() bool {
	return s.Count == 1
}

// RowHeight returns the height in points one source row is drawn at. It is
// Scale for slices that fit the page and slightly less for continuation
// slices, whose repeated overlap makes them a little taller than a page.
func (s RenderSlice) RowHeight() float64 {
	if s.EndY <= s.StartY {
		return s.Scale
	}
	return s.ScaledHeight / (s.EndY - s.StartY)
}

// Band is the whole-pixel crop the assembler draws for a slice.
type Band struct {
	// Y0 and Y1 bound the source rows [Y0, Y1).
	Y0, Y1 int
	// Top is the page offset of row Y0 in points. It is zero or slightly
	// negative so that row StartY lands exactly on the page top.
	Top float64
	// Height is the drawn height of the band in points.
	Height float64
}

// Band rounds [StartY, EndY) outward to whole pixel rows and positions
// the crop so that StartY lands on the page top and EndY at ScaledHeight.
// Fractions of a row outside that span are clipped by the page.
func (s RenderSlice) Band() Band {
	y0 := int(math.Floor(s.StartY + epsilon))
	y1 := int(math.Ceil(s.EndY - epsilon))
	if s.Source != nil && y1 > s.Source.Height {
		y1 = s.Source.Height
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	rh := s.RowHeight()
	return Band{
		Y0:     y0,
		Y1:     y1,
		Top:    -(s.StartY - float64(y0)) * rh,
		Height: float64(y1-y0) * rh,
	}
}

// PaginatorOption configures a [Paginator].
type PaginatorOption func(*Paginator)

// WithOverlap sets how many points of content a continuation page repeats
// from the previous page. Defaults to [DefaultOverlap]; zero disables it.
func WithOverlap(points float64) PaginatorOption {
	return func(p *Paginator) {
		p.overlap = points
	}
}

// Paginator lays out a sequence of source images on fixed-size pages.
//
// Each image is scaled to the page width. An image that then fits on one
// page yields one slice; a taller image is cut into consecutive bands of one
// page height each, where every band after the first starts a little
// earlier so the reader sees the end of the previous page again.
//
// A Paginator is immutable and safe for concurrent use.
type Paginator struct {
	geometry PageGeometry
	overlap  float64
}

// NewPaginator validates the page geometry and overlap and returns a
// Paginator. Invalid settings are reported with [ErrGeometry] before any
// image is looked at.
func NewPaginator(g PageGeometry, opts ...PaginatorOption) (*Paginator, error) {
	p := &Paginator{geometry: g, overlap: DefaultOverlap}
	for _, o := range opts {
		o(p)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if p.overlap < 0 || math.IsNaN(p.overlap) || math.IsInf(p.overlap, 0) {
		return nil, fmt.Errorf("%w: overlap must be a non-negative number, got %v", ErrGeometry, p.overlap)
	}
	// In source pixels the overlap is overlap/s and a page is height/s for
	// every scale s, so the comparison holds for all images at once.
	if p.overlap >= g.Height {
		return nil, fmt.Errorf("%w: overlap %.2f pt is not smaller than the page height %.2f pt",
			ErrGeometry, p.overlap, g.Height)
	}
	return p, nil
}

// Geometry returns the output page size.
func (p *Paginator) Geometry() PageGeometry { return p.geometry }

// Overlap returns the configured overlap in points.
func (p *Paginator) Overlap() float64 { return p.overlap }

// Paginate returns the slices for images, in order. An empty input yields
// no slices. The first malformed image aborts pagination with an error
// wrapping [ErrMalformedImage].
//
// The returned slices point into images, which must not be modified while
// the slices are in use.
func (p *Paginator) Paginate(images []SourceImage) ([]RenderSlice, error) {
	var out []RenderSlice
	for i := range images {
		slices, err := p.paginateImage(&images[i])
		if err != nil {
			return nil, err
		}
		out = append(out, slices...)
	}
	return out, nil
}

// PageCount returns how many pages an image of the given pixel size
// occupies.
func (p *Paginator) PageCount(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	s := p.geometry.Width / float64(width)
	return pagesFor(float64(height)*s, p.geometry.Height)
}

func (p *Paginator) paginateImage(img *SourceImage) ([]RenderSlice, error) {
	w, h, err := img.dimensions()
	if err != nil {
		return nil, err
	}
	img.Width, img.Height = w, h

	pageH := p.geometry.Height
	s := p.geometry.Width / float64(w)
	hi := float64(h)
	scaled := hi * s

	n := pagesFor(scaled, pageH)
	if n == 1 {
		return []RenderSlice{{
			Source:       img,
			Count:        1,
			EndY:         hi,
			Scale:        s,
			ScaledHeight: math.Min(scaled, pageH),
		}}, nil
	}

	tile := pageH / s
	overlapPx := p.overlap / s
	slices := make([]RenderSlice, 0, n)
	for k := 0; k < n; k++ {
		start := 0.0
		if k > 0 {
			start = math.Max(0, float64(k)*tile-overlapPx)
		}
		end := math.Min(float64(k+1)*tile, hi)
		slices = append(slices, RenderSlice{
			Source:       img,
			Index:        k,
			Count:        n,
			StartY:       start,
			EndY:         end,
			Scale:        s,
			ScaledHeight: math.Min((end-start)*s, pageH),
		})
	}
	return slices, nil
}

// pagesFor returns ceil(scaled/pageH), treating values within rounding
// noise of a page boundary as exactly on it.
func pagesFor(scaled, pageH float64) int {
	if scaled <= pageH*(1+epsilon) {
		return 1
	}
	return int(math.Ceil(scaled/pageH - epsilon))
}
