package kwpdf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SourceImage is one captured raster, usually a full-page screenshot of a
// single register section. Data is never modified.
//
// Width and Height may be left zero; they are then read from Data and
// filled in the first time a [Paginator] sees the image. An image without
// Data is always malformed.
type SourceImage struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

// NewSourceImage wraps encoded image bytes and reads their dimensions.
func NewSourceImage(name string, data []byte) (SourceImage, error) {
	img := SourceImage{Name: name, Data: data}
	w, h, err := img.dimensions()
	if err != nil {
		return SourceImage{}, err
	}
	img.Width, img.Height = w, h
	return img, nil
}

// LoadSourceImage reads an image file from disk.
func LoadSourceImage(path string) (SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceImage{}, fmt.Errorf("kwpdf: reading image: %w", err)
	}
	return NewSourceImage(filepath.Base(path), data)
}

// dimensions returns the pixel size of the image, decoding only the
// header when the size is not already known.
func (s *SourceImage) dimensions() (int, int, error) {
	if len(s.Data) == 0 {
		return 0, 0, fmt.Errorf("%w: %q is empty", ErrMalformedImage, s.Name)
	}
	if s.Width > 0 && s.Height > 0 {
		return s.Width, s.Height, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(s.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrMalformedImage, s.Name, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: %q has size %dx%d", ErrMalformedImage, s.Name, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// decode fully decodes the image.
func (s *SourceImage) decode() (image.Image, error) {
	if len(s.Data) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", ErrMalformedImage, s.Name)
	}
	img, _, err := image.Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedImage, s.Name, err)
	}
	return img, nil
}
