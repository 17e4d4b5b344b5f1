package kwpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"
)

// Creator is written into the PDF metadata of every document.
const Creator = "go-kw-pdf"

type documentConfig struct {
	title     string
	createdAt time.Time
	maxDPI    float64
}

// DocumentOption configures a [Document].
type DocumentOption func(*documentConfig)

// WithTitle sets the PDF title, typically the record identifier.
func WithTitle(title string) DocumentOption {
	return func(c *documentConfig) {
		c.title = title
	}
}

// WithCreationTime fixes the creation date stored in the PDF. By default
// the time of [NewDocument] is used.
func WithCreationTime(t time.Time) DocumentOption {
	return func(c *documentConfig) {
		c.createdAt = t
	}
}

// WithMaxDPI downsamples slices whose effective resolution on the page
// exceeds dpi. Zero, the default, keeps every captured pixel.
func WithMaxDPI(dpi float64) DocumentOption {
	return func(c *documentConfig) {
		c.maxDPI = dpi
	}
}

// Document is a PDF under construction with one page per [RenderSlice].
//
// Pages are appended in the order slices are added. The document only
// becomes valid output once [Document.Finish] succeeds; after any
// [ErrAssembly] failure it must be discarded.
type Document struct {
	cfg      documentConfig
	geometry PageGeometry
	pdf      *fpdf.Fpdf

	pages    int
	err      error
	finished bool

	// last decoded source; slices of one image arrive back to back.
	lastSrc *SourceImage
	lastImg image.Image
}

// NewDocument starts an empty document whose pages all have size g.
func NewDocument(g PageGeometry, opts ...DocumentOption) (*Document, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	cfg := documentConfig{createdAt: time.Now()}
	for _, o := range opts {
		o(&cfg)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: g.Width, Ht: g.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(Creator, true)
	pdf.SetCreationDate(cfg.createdAt)
	if cfg.title != "" {
		pdf.SetTitle(cfg.title, true)
	}

	return &Document{cfg: cfg, geometry: g, pdf: pdf}, nil
}

// Pages returns the number of pages added so far.
func (d *Document) Pages() int { return d.pages }

// AddSlice crops rows [StartY, EndY) out of the slice's source image and
// draws them at the top of a new page, full page width and ScaledHeight
// tall. Continuation slices are therefore fitted to the page with their
// overlap rows included.
func (d *Document) AddSlice(s RenderSlice) error {
	if d.finished {
		return ErrDocumentClosed
	}
	if d.err != nil {
		return d.err
	}
	if s.Source == nil {
		return fmt.Errorf("%w: slice %d has no source image", ErrMalformedImage, s.Index)
	}

	src, err := d.source(s.Source)
	if err != nil {
		return err
	}
	b := s.Band()
	band, err := d.encodeBand(src, b.Y0, b.Y1)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("p%d", d.pages+1)
	opt := fpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	d.pdf.RegisterImageOptionsReader(name, opt, band)
	d.pdf.AddPage()
	d.pdf.ImageOptions(name, 0, b.Top, d.geometry.Width, b.Height, false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		d.err = fmt.Errorf("%w: page %d (%s, rows %d-%d): %w", ErrAssembly, d.pages+1, s.Source.Name, b.Y0, b.Y1, err)
		return d.err
	}
	d.pages++
	return nil
}

// Finish closes the document and returns the encoded PDF. It can be called
// once; a document without pages is rejected with [ErrEmptyDocument].
func (d *Document) Finish() (*Result, error) {
	if d.finished {
		return nil, ErrDocumentClosed
	}
	d.finished = true
	d.lastSrc, d.lastImg = nil, nil

	if d.err != nil {
		return nil, d.err
	}
	if d.pages == 0 {
		return nil, ErrEmptyDocument
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: writing output: %w", ErrAssembly, err)
	}
	return &Result{data: buf.Bytes(), pages: d.pages}, nil
}

// source decodes s, reusing the previous decode for consecutive slices of
// the same image.
func (d *Document) source(s *SourceImage) (image.Image, error) {
	if d.lastSrc == s && d.lastImg != nil {
		return d.lastImg, nil
	}
	img, err := s.decode()
	if err != nil {
		return nil, err
	}
	d.lastSrc, d.lastImg = s, img
	return img, nil
}

// encodeBand copies rows [y0, y1) of src into a PNG, downsampling it when
// a DPI limit is set.
func (d *Document) encodeBand(src image.Image, y0, y1 int) (*bytes.Buffer, error) {
	b := src.Bounds()
	if y1 > b.Dy() {
		y1 = b.Dy()
	}
	if y0 < 0 || y0 >= y1 {
		return nil, fmt.Errorf("%w: empty band %d-%d of %dx%d image", ErrMalformedImage, y0, y1, b.Dx(), b.Dy())
	}

	rect := image.Rect(0, 0, b.Dx(), y1-y0)
	band := image.NewRGBA(rect)
	draw.Draw(band, rect, src, image.Pt(b.Min.X, b.Min.Y+y0), draw.Src)

	var out image.Image = band
	if w := d.targetWidth(b.Dx()); w < b.Dx() {
		h := int(math.Max(1, math.Round(float64(rect.Dy())*float64(w)/float64(b.Dx()))))
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), band, rect, draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("%w: encoding band: %w", ErrAssembly, err)
	}
	return &buf, nil
}

// targetWidth returns the pixel width a band of the given width is stored
// at under the DPI limit.
func (d *Document) targetWidth(width int) int {
	if d.cfg.maxDPI <= 0 {
		return width
	}
	limit := int(math.Ceil(d.geometry.Width / 72 * d.cfg.maxDPI))
	if limit < 1 || limit >= width {
		return width
	}
	return limit
}

// Assemble builds a complete document from slices in one call.
func Assemble(g PageGeometry, slices []RenderSlice, opts ...DocumentOption) (*Result, error) {
	doc, err := NewDocument(g, opts...)
	if err != nil {
		return nil, err
	}
	for _, s := range slices {
		if err := doc.AddSlice(s); err != nil {
			doc.Finish()
			return nil, err
		}
	}
	return doc.Finish()
}
