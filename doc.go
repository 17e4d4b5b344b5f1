// Package kwpdf retrieves land-register (księga wieczysta) records from the
// public web viewer and saves each record as one paginated PDF.
//
// A record is captured as a handful of very tall screenshots, one per
// register section. The core of the package lays those images out on
// fixed-size pages: every image is scaled to the page width and, when it
// is taller than a page, cut into page-height bands. Each continuation page
// repeats a few points from the end of the previous one so that a line cut
// by the page edge can still be read.
//
// # Laying out images
//
// A [Paginator] computes the slices and a [Document] draws them:
//
//	p, err := kwpdf.NewPaginator(kwpdf.A4Geometry, kwpdf.WithOverlap(6))
//	slices, err := p.Paginate(images)
//	res, err := kwpdf.Assemble(p.Geometry(), slices, kwpdf.WithTitle("WA2M/00436586/7"))
//	err = res.WriteToFile("WA2M_00436586_7.pdf", 0o644)
//
// Pagination is pure: the same images always give the same slices, and no
// slice is taller than the page.
//
// # Capturing records
//
// A [Capturer] drives headless Chrome through the viewer. It reuses one
// browser process across records:
//
//	c, err := kwpdf.NewCapturer(kwpdf.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	pl := kwpdf.NewPipeline(c, p, kwpdf.WithOutputDir("out"))
//	path, err := pl.Download(ctx, id)
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
//
// # Batches
//
// [ReadList] reads identifiers from a CSV file and a [Batch] downloads them
// one after another. A failing record is recorded in the [Report] and in an
// optional [FailureLog]; it never stops the records after it.
//
// Identifiers can be checked before any request with [RecordID.Verify],
// and [RecordRange] enumerates consecutive numbers of one court.
package kwpdf
