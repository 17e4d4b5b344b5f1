package kwpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/porticus-lab/go-kw-pdf/internal/pdfinfo"
)

// Result is an encoded record PDF, as returned by [Document.Finish] and
// [Assemble]. The bytes are never modified after creation.
type Result struct {
	data  []byte
	pages int
}

// Bytes returns the encoded PDF.
func (r *Result) Bytes() []byte { return r.data }

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int { return len(r.data) }

// Pages returns the number of pages the document was assembled with.
func (r *Result) Pages() int { return r.pages }

// Base64 returns the PDF in standard base64 encoding.
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns a fresh reader positioned at the start of the PDF.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile saves the PDF at path with the given permissions. The data
// goes to a temporary file in the same directory first and is renamed
// into place, so path never holds a partial document. Missing parent
// directories are created.
func (r *Result) WriteToFile(path string, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kwpdf: creating output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".kwpdf-*.pdf")
	if err != nil {
		return fmt.Errorf("kwpdf: creating temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("kwpdf: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("kwpdf: closing temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("kwpdf: setting permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("kwpdf: moving output into place: %w", err)
	}
	return nil
}

// PageGeometries parses the encoded document and returns the size of each
// page as stored in the file.
func (r *Result) PageGeometries() ([]PageGeometry, error) {
	doc, err := pdfinfo.Load(r.data)
	if err != nil {
		return nil, fmt.Errorf("kwpdf: reading result: %w", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("kwpdf: reading result: %w", err)
	}
	out := make([]PageGeometry, len(pages))
	for i, p := range pages {
		out[i] = PageGeometry{Width: p.Width, Height: p.Height}
	}
	return out, nil
}
