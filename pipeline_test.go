package kwpdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticus-lab/go-kw-pdf/internal/pdfinfo"
)

type fakeFetcher struct {
	images []SourceImage
	err    error
	calls  []RecordID
}

func (f *fakeFetcher) Fetch(_ context.Context, id RecordID) ([]SourceImage, error) {
	f.calls = append(f.calls, id)
	// Hand out a fresh slice; the pipeline fills in dimensions.
	return append([]SourceImage(nil), f.images...), f.err
}

func newTestPipeline(t *testing.T, f Fetcher) (*Pipeline, string) {
	t.Helper()
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "out")
	return NewPipeline(f, p, WithOutputDir(dir)), dir
}

func TestPipeline_Download(t *testing.T) {
	f := &fakeFetcher{images: []SourceImage{
		testImage(t, "dzial_1.png", 400, 300),
		testImage(t, "dzial_2.png", 400, 1200),
	}}
	pl, dir := newTestPipeline(t, f)
	id := RecordID{Court: "WA2M", Number: "00436586", Check: "7"}

	path, err := pl.Download(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "WA2M_00436586_7.pdf"), path)
	assert.Equal(t, []RecordID{id}, f.calls)

	doc, err := pdfinfo.Open(path)
	require.NoError(t, err)
	pages, err := doc.Pages()
	require.NoError(t, err)
	// 400x300 fits one page, 400x1200 needs three.
	assert.Len(t, pages, 4)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WA2M_00436586_7.pdf", entries[0].Name())
}

func TestPipeline_DownloadFailures(t *testing.T) {
	id := RecordID{Court: "OL1O", Number: "00140441", Check: "9"}
	fetchErr := errors.New("viewer unavailable")

	testcases := []struct {
		name    string
		fetcher *fakeFetcher
		wantErr error
	}{
		{name: "fetch error", fetcher: &fakeFetcher{err: fetchErr}, wantErr: fetchErr},
		{name: "no captures", fetcher: &fakeFetcher{}, wantErr: ErrNoCaptures},
		{
			name:    "broken capture",
			fetcher: &fakeFetcher{images: []SourceImage{{Name: "x.png", Data: []byte("nope")}}},
			wantErr: ErrMalformedImage,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			pl, dir := newTestPipeline(t, tc.fetcher)
			path, err := pl.Download(context.Background(), id)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, path)

			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries, "no partial output")
		})
	}
}
