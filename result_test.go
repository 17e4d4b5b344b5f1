package kwpdf

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"
)

var samplePDF = []byte("%PDF-1.3 fake content for testing")

func newResult() *Result {
	return &Result{data: samplePDF, pages: 3}
}

func TestResult_Accessors(t *testing.T) {
	r := newResult()
	if !bytes.Equal(r.Bytes(), samplePDF) {
		t.Error("Bytes() did not return original data")
	}
	if r.Len() != len(samplePDF) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(samplePDF))
	}
	if r.Pages() != 3 {
		t.Errorf("Pages() = %d, want 3", r.Pages())
	}
	if got, want := r.Base64(), base64.StdEncoding.EncodeToString(samplePDF); got != want {
		t.Errorf("Base64() = %q, want %q", got, want)
	}
}

func TestResult_ReaderStartsOver(t *testing.T) {
	r := newResult()
	first, err := io.ReadAll(r.Reader())
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	second, err := io.ReadAll(r.Reader())
	if err != nil {
		t.Fatalf("reading again: %v", err)
	}
	if !bytes.Equal(first, samplePDF) || !bytes.Equal(second, samplePDF) {
		t.Error("Reader() did not return the whole document each time")
	}
}

func TestResult_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := newResult().WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(len(samplePDF)) || !bytes.Equal(buf.Bytes(), samplePDF) {
		t.Errorf("WriteTo wrote %d bytes %q", n, buf.Bytes())
	}
}

func TestResult_WriteToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "WA2M_00436586_7.pdf")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := newResult().WriteToFile(path, 0o644); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !bytes.Equal(data, samplePDF) {
		t.Error("WriteToFile did not replace the old content")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the PDF", len(entries))
	}
}

func TestResult_WriteToFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.pdf")
	if err := newResult().WriteToFile(path, 0o644); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestResult_WriteToFileLeavesNoTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := newResult().WriteToFile(target, 0o644); err == nil {
		t.Fatal("expected an error when the target is a non-empty directory")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "taken" {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestResult_PageGeometries(t *testing.T) {
	slices := mustPaginate(t, Letter.Geometry(Landscape), testImage(t, "a.png", 100, 160))
	res, err := Assemble(Letter.Geometry(Landscape), slices)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got, err := res.PageGeometries()
	if err != nil {
		t.Fatalf("PageGeometries: %v", err)
	}
	if len(got) != res.Pages() {
		t.Fatalf("got %d pages, want %d", len(got), res.Pages())
	}
	for i, g := range got {
		if !almostEqual(g.Width, 792, 0.01) || !almostEqual(g.Height, 612, 0.01) {
			t.Errorf("page %d is %v, want 792 x 612 pt", i+1, g)
		}
	}

	if _, err := newResult().PageGeometries(); err == nil {
		t.Error("expected an error for a document without cross-reference table")
	}
}
