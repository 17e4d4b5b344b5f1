package kwpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage returns a PNG of the given size whose rows alternate between
// two grey levels every ten pixels.
func testImage(t testing.TB, name string, w, h int) SourceImage {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.Gray{Y: 40}
		if (y/10)%2 == 1 {
			c = color.Gray{Y: 220}
		}
		for x := 0; x < w; x++ {
			img.SetGray(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return SourceImage{Name: name, Data: buf.Bytes()}
}

// sized is a SourceImage with known dimensions; the bytes are only checked
// for presence, never decoded.
func sized(w, h int) SourceImage {
	return SourceImage{Name: fmt.Sprintf("%dx%d", w, h), Data: []byte{1}, Width: w, Height: h}
}

func TestPaginate_Scenarios(t *testing.T) {
	g := PageGeometry{Width: 595, Height: 842}

	testcases := []struct {
		name      string
		w, h      int
		overlap   float64
		wantCount int
		check     func(t *testing.T, s []RenderSlice)
	}{
		{
			name:      "tall screenshot splits in two",
			w:         1000,
			h:         2000,
			overlap:   6,
			wantCount: 2,
			check: func(t *testing.T, s []RenderSlice) {
				assert.InDelta(t, 0.595, s[0].Scale, 1e-12)
				assert.Equal(t, 0.0, s[0].StartY)
				assert.InDelta(t, 1415.126, s[0].EndY, 1e-3)
				assert.InDelta(t, 842, s[0].ScaledHeight, 1e-9)

				assert.InDelta(t, 1405.042, s[1].StartY, 1e-3)
				assert.Equal(t, 2000.0, s[1].EndY)
				assert.InDelta(t, 354.0, s[1].ScaledHeight, 1e-2)
			},
		},
		{
			name:      "short screenshot fits one page",
			w:         1000,
			h:         500,
			overlap:   6,
			wantCount: 1,
			check: func(t *testing.T, s []RenderSlice) {
				assert.True(t, s[0].Full())
				assert.Equal(t, 0.0, s[0].StartY)
				assert.Equal(t, 500.0, s[0].EndY)
				assert.InDelta(t, 297.5, s[0].ScaledHeight, 1e-9)
			},
		},
		{
			name:      "narrow image is scaled up",
			w:         500,
			h:         500,
			overlap:   6,
			wantCount: 1,
			check: func(t *testing.T, s []RenderSlice) {
				assert.InDelta(t, 1.19, s[0].Scale, 1e-12)
				assert.InDelta(t, 595, s[0].ScaledHeight, 1e-9)
			},
		},
		{
			name:      "without overlap slices tile exactly",
			w:         1000,
			h:         4000,
			overlap:   0,
			wantCount: 3,
			check: func(t *testing.T, s []RenderSlice) {
				for k := 1; k < len(s); k++ {
					assert.InDelta(t, s[k-1].EndY, s[k].StartY, 1e-9)
				}
			},
		},
		{
			name:      "exact page fit is one slice",
			w:         595,
			h:         842,
			overlap:   6,
			wantCount: 1,
		},
		{
			name:      "one pixel over a page is two slices",
			w:         595,
			h:         843,
			overlap:   6,
			wantCount: 2,
			check: func(t *testing.T, s []RenderSlice) {
				assert.InDelta(t, 836, s[1].StartY, 1e-9)
				assert.Equal(t, 843.0, s[1].EndY)
				assert.InDelta(t, 7, s[1].ScaledHeight, 1e-9)
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPaginator(g, WithOverlap(tc.overlap))
			require.NoError(t, err)

			images := []SourceImage{sized(tc.w, tc.h)}
			got, err := p.Paginate(images)
			require.NoError(t, err)
			require.Len(t, got, tc.wantCount)
			for k, s := range got {
				assert.Same(t, &images[0], s.Source)
				assert.Equal(t, k, s.Index)
				assert.Equal(t, tc.wantCount, s.Count)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestPaginate_MultipleImagesKeepOrder(t *testing.T) {
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)

	images := []SourceImage{sized(1920, 900), sized(1920, 6000), sized(1920, 300)}
	got, err := p.Paginate(images)
	require.NoError(t, err)

	want := []*SourceImage{&images[0], &images[1], &images[1], &images[1], &images[1], &images[2]}
	require.Len(t, got, len(want))
	for i := range got {
		assert.Same(t, want[i], got[i].Source, "slice %d", i)
	}
}

func TestPaginate_Invariants(t *testing.T) {
	geometries := []PageGeometry{
		A4Geometry,
		A4.Geometry(Landscape),
		Letter.Geometry(Portrait),
		{Width: 100, Height: 10},
	}
	overlaps := []float64{0, DefaultOverlap, 9.5}
	sizes := [][2]int{
		{1, 1}, {1920, 1}, {1920, 1080}, {1920, 2715}, {1920, 2716},
		{1000, 2000}, {1280, 12345}, {333, 9999}, {7, 5000},
	}

	for _, g := range geometries {
		for _, ov := range overlaps {
			if ov >= g.Height {
				continue
			}
			p, err := NewPaginator(g, WithOverlap(ov))
			require.NoError(t, err)

			for _, sz := range sizes {
				name := fmt.Sprintf("%s/overlap=%g/%dx%d", g, ov, sz[0], sz[1])
				t.Run(name, func(t *testing.T) {
					images := []SourceImage{sized(sz[0], sz[1])}
					got, err := p.Paginate(images)
					require.NoError(t, err)
					checkSlices(t, g, ov, images[0], got)

					assert.Equal(t, len(got), p.PageCount(sz[0], sz[1]))

					again, err := p.Paginate(images)
					require.NoError(t, err)
					assert.Equal(t, got, again, "pagination is deterministic")
				})
			}
		}
	}
}

func checkSlices(t *testing.T, g PageGeometry, overlap float64, img SourceImage, got []RenderSlice) {
	t.Helper()
	s := g.Width / float64(img.Width)
	hi := float64(img.Height)
	hs := hi * s

	wantN := 1
	if hs > g.Height*(1+1e-9) {
		wantN = int(math.Ceil(hs/g.Height - 1e-9))
	}
	require.Len(t, got, wantN)

	assert.Equal(t, 0.0, got[0].StartY)
	assert.InDelta(t, hi, got[len(got)-1].EndY, 1e-9)

	tile := g.Height / s
	for k, sl := range got {
		assert.InDelta(t, s, sl.Scale, 1e-12)
		assert.LessOrEqual(t, sl.ScaledHeight, g.Height+1e-9, "slice %d overflows", k)
		assert.Greater(t, sl.ScaledHeight, 0.0)
		assert.LessOrEqual(t, sl.EndY, hi+1e-9)
		assert.Less(t, sl.StartY, sl.EndY)
		if wantN > 1 {
			assert.InDelta(t, math.Min(float64(k+1)*tile, hi), sl.EndY, 1e-6)
		}
		if k == 0 {
			continue
		}
		prev := got[k-1]
		assert.LessOrEqual(t, sl.StartY, prev.EndY+1e-9, "gap before slice %d", k)
		assert.InDelta(t, math.Max(0, prev.EndY-overlap/s), sl.StartY, 1e-6)
		if overlap > 0 {
			assert.Less(t, sl.StartY, prev.EndY, "slice %d repeats nothing", k)
		}
	}
}

func TestRenderSlice_Band(t *testing.T) {
	p, err := NewPaginator(PageGeometry{Width: 595, Height: 842})
	require.NoError(t, err)

	images := []SourceImage{sized(1000, 5000)}
	got, err := p.Paginate(images)
	require.NoError(t, err)
	require.Len(t, got, 4)

	for k, s := range got {
		b := s.Band()
		rh := s.RowHeight()
		assert.GreaterOrEqual(t, b.Y0, 0)
		assert.LessOrEqual(t, b.Y1, 5000)
		assert.Less(t, b.Y0, b.Y1)
		assert.LessOrEqual(t, b.Top, 0.0)
		assert.Greater(t, b.Top, -rh-1e-9)
		assert.LessOrEqual(t, rh, s.Scale+1e-12)

		// Row StartY sits on the page top and row EndY on the bottom of the
		// drawn slice, so the whole [StartY, EndY) range is on the page.
		assert.InDelta(t, 0, b.Top+(s.StartY-float64(b.Y0))*rh, 1e-9)
		assert.InDelta(t, s.ScaledHeight, b.Top+(s.EndY-float64(b.Y0))*rh, 1e-9, "slice %d", k)
		assert.GreaterOrEqual(t, b.Top+b.Height, s.ScaledHeight-1e-9, "slice %d is short", k)
		assert.Less(t, b.Top+b.Height, s.ScaledHeight+rh+1e-9, "slice %d spills more than a row", k)
		if k > 0 {
			assert.LessOrEqual(t, b.Y0, got[k-1].Band().Y1)
		}
	}
	assert.Equal(t, 5000, got[3].Band().Y1)
}

func TestRenderSlice_EveryContinuationRepeatsOverlap(t *testing.T) {
	p, err := NewPaginator(PageGeometry{Width: 595, Height: 842})
	require.NoError(t, err)

	got, err := p.Paginate([]SourceImage{sized(1000, 5000)})
	require.NoError(t, err)
	require.Len(t, got, 4)

	// 6 pt at 0.595 pt per pixel is about 10 source rows.
	wantRows := DefaultOverlap / got[0].Scale
	for k := 1; k < len(got); k++ {
		prev, cur := got[k-1], got[k]
		assert.Less(t, cur.StartY, prev.EndY, "page %d repeats nothing", k)
		assert.InDelta(t, wantRows, prev.EndY-cur.StartY, 1e-6, "page %d", k)

		// The repeated rows are drawn on both pages.
		assert.LessOrEqual(t, prev.Band().Y1-cur.Band().Y0, int(math.Ceil(wantRows))+1)
		assert.GreaterOrEqual(t, prev.Band().Y1-cur.Band().Y0, int(math.Floor(wantRows)))
	}

	// Continuation pages are fitted to the page: their overlap costs
	// overlap/(Hp+overlap) of the scale.
	mid := got[1]
	assert.InDelta(t, 842.0, mid.ScaledHeight, 1e-9)
	assert.InDelta(t, mid.Scale*842/(842+DefaultOverlap), mid.RowHeight(), 1e-9)
	assert.InDelta(t, got[0].Scale, got[0].RowHeight(), 1e-12)
}

func TestPaginate_Empty(t *testing.T) {
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)

	got, err := p.Paginate(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPaginate_Malformed(t *testing.T) {
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)

	testcases := []struct {
		name string
		img  SourceImage
	}{
		{name: "no bytes", img: SourceImage{Name: "empty"}},
		{name: "no bytes with size", img: SourceImage{Name: "empty", Width: 10, Height: 10}},
		{name: "garbage", img: SourceImage{Name: "junk", Data: []byte("not an image")}},
		{name: "truncated png", img: SourceImage{Name: "cut", Data: testImage(t, "x", 4, 4).Data[:20]}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			images := []SourceImage{sized(100, 100), tc.img}
			got, err := p.Paginate(images)
			assert.ErrorIs(t, err, ErrMalformedImage)
			assert.Nil(t, got)
		})
	}
}

func TestPaginate_ReadsDimensionsFromData(t *testing.T) {
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)

	images := []SourceImage{testImage(t, "a.png", 40, 200)}
	got, err := p.Paginate(images)
	require.NoError(t, err)
	assert.Equal(t, 40, images[0].Width)
	assert.Equal(t, 200, images[0].Height)
	assert.Len(t, got, p.PageCount(40, 200))
}

func TestNewPaginator_Geometry(t *testing.T) {
	testcases := []struct {
		name    string
		g       PageGeometry
		opts    []PaginatorOption
		wantErr error
	}{
		{name: "a4", g: A4Geometry},
		{name: "zero overlap", g: A4Geometry, opts: []PaginatorOption{WithOverlap(0)}},
		{name: "zero height", g: PageGeometry{Width: 595}, wantErr: ErrGeometry},
		{name: "negative width", g: PageGeometry{Width: -1, Height: 842}, wantErr: ErrGeometry},
		{name: "infinite height", g: PageGeometry{Width: 595, Height: math.Inf(1)}, wantErr: ErrGeometry},
		{name: "negative overlap", g: A4Geometry, opts: []PaginatorOption{WithOverlap(-1)}, wantErr: ErrGeometry},
		{name: "nan overlap", g: A4Geometry, opts: []PaginatorOption{WithOverlap(math.NaN())}, wantErr: ErrGeometry},
		{name: "overlap of a full page", g: PageGeometry{Width: 100, Height: 50}, opts: []PaginatorOption{WithOverlap(50)}, wantErr: ErrGeometry},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPaginator(tc.g, tc.opts...)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.g, p.Geometry())
		})
	}
}

func TestPaginator_Defaults(t *testing.T) {
	p, err := NewPaginator(A4Geometry)
	require.NoError(t, err)
	assert.Equal(t, DefaultOverlap, p.Overlap())
	assert.Equal(t, 0, p.PageCount(0, 100))
	assert.Equal(t, 1, p.PageCount(1920, 1))
}
