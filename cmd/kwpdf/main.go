// kwpdf downloads land-register records from the public viewer and saves
// each one as a paginated PDF.
//
// Usage:
//
//	kwpdf fetch [options] <ID>...
//	kwpdf batch [options] <list.csv>
//	kwpdf assemble [options] -o <out.pdf> <image>...
//	kwpdf info <file.pdf>
//	kwpdf digit <CCCC/NNNNNNNN> | <CCCC> <from> [to]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	kwpdf "github.com/porticus-lab/go-kw-pdf"
	"github.com/porticus-lab/go-kw-pdf/internal/config"
	"github.com/porticus-lab/go-kw-pdf/internal/pdfinfo"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "fetch":
		err = withConfig(ctx, os.Args[2:], runFetch)
	case "batch":
		err = withConfig(ctx, os.Args[2:], runBatch)
	case "assemble":
		err = withConfig(ctx, os.Args[2:], runAssemble)
	case "info":
		err = runInfo(os.Args[2:])
	case "digit":
		err = runDigit(os.Stdout, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`kwpdf - land-register record to PDF downloader

Usage:
  kwpdf fetch [options] <ID>...
  kwpdf batch [options] <list.csv>
  kwpdf assemble [options] -o <out.pdf> <image>...
  kwpdf info <file.pdf>
  kwpdf digit <CCCC/NNNNNNNN> | <CCCC> <from> [to]

Commands:
  fetch     Download the given records, one PDF each
  batch     Download every record listed in a CSV file ("-" for stdin)
  assemble  Lay out existing screenshots as a PDF, no browser needed
  info      Display page count and page sizes of a PDF
  digit     Compute control digits for one number or a range

Options:
  -o <path>            Output directory (fetch, batch) or file (assemble)
  -page <name>         Page size: a3, a4, a5, letter, legal, tabloid (default: a4)
  -landscape           Landscape pages
  -overlap <pt>        Content repeated at the top of continuation pages (default: 6)
  -dpi <n>             Downsample captures above this resolution (default: keep all)
  -chrome <path>       Chrome/Chromium executable
  -download-browser    Download Chromium if none is installed
  -no-sandbox          Disable the Chrome sandbox (needed as root)
  -show                Show the browser window
  -timeout <dur>       Time limit per record (default: 2m)
  -pause <dur>         Wait between records (default: 2s)
  -debug-dir <dir>     Keep every screenshot in dir
  -failures <file>     Append failed identifiers to file (JSON lines)
  -verify              Reject identifiers with a wrong control digit
  -json                Log as JSON

Every option can also be set with a KWPDF_* environment variable or in a
.env file, e.g. KWPDF_OUTPUT_DIR, KWPDF_PAGE_SIZE, KWPDF_NO_SANDBOX.

Examples:
  kwpdf fetch -o out WA2M/00436586/7
  kwpdf batch -failures failed.jsonl -pause 5s records.csv
  kwpdf assemble -o record.pdf dzial_1.png dzial_2.png
  kwpdf digit WA2M 436580 436590
`)
}

// withConfig loads configuration, applies command-line options and runs fn.
func withConfig(ctx context.Context, args []string, fn func(context.Context, *options) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o, err := parseOptions(cfg, args)
	if err != nil {
		return err
	}
	return fn(ctx, o)
}

// runFetch implements the "fetch" command.
func runFetch(ctx context.Context, o *options) error {
	if len(o.args) == 0 {
		return fmt.Errorf("no record identifier specified")
	}
	return runRecords(ctx, o, o.args)
}

// runBatch implements the "batch" command.
func runBatch(ctx context.Context, o *options) error {
	if len(o.args) != 1 {
		return fmt.Errorf("expected exactly one list file")
	}

	var r io.Reader = os.Stdin
	if name := o.args[0]; name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("opening list: %w", err)
		}
		defer f.Close()
		r = f
	}
	ids, err := kwpdf.ReadList(r)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%s lists no identifiers", o.args[0])
	}
	return runRecords(ctx, o, ids)
}

// runRecords downloads ids with one shared browser.
func runRecords(ctx context.Context, o *options, ids []string) error {
	log, err := newLogger(o.cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	p, err := o.paginator()
	if err != nil {
		return err
	}
	c, err := kwpdf.NewCapturer(o.capturerOptions(log)...)
	if err != nil {
		return err
	}
	defer c.Close()

	dir := o.cfg.OutputDir
	if o.output != "" {
		dir = o.output
	}
	pl := kwpdf.NewPipeline(c, p,
		kwpdf.WithOutputDir(dir),
		kwpdf.WithDocumentOptions(kwpdf.WithMaxDPI(o.cfg.MaxDPI)),
		kwpdf.WithPipelineLogger(log),
	)

	batchOpts := []kwpdf.BatchOption{
		kwpdf.WithPause(o.cfg.Pause),
		kwpdf.WithBatchLogger(log),
	}
	if o.cfg.Verify {
		batchOpts = append(batchOpts, kwpdf.WithVerifiedIDs())
	}
	if o.cfg.FailureLog != "" {
		fl, err := kwpdf.OpenFailureLog(o.cfg.FailureLog)
		if err != nil {
			return err
		}
		defer fl.Close()
		batchOpts = append(batchOpts, kwpdf.WithFailureLog(fl))
	}

	rep, runErr := kwpdf.NewBatch(pl, batchOpts...).Run(ctx, ids)
	for _, out := range rep.Outcomes {
		if out.OK() {
			fmt.Printf("ok      %s -> %s\n", out.ID, out.Path)
		} else {
			fmt.Printf("failed  %s: %v\n", out.ID, out.Err)
		}
	}
	fmt.Printf("\n%d succeeded, %d failed, %d not processed\n",
		rep.Succeeded, rep.Failed, len(ids)-len(rep.Outcomes))

	if runErr != nil {
		return fmt.Errorf("interrupted: %w", runErr)
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", rep.Failed, len(ids))
	}
	return nil
}

// runAssemble implements the "assemble" command.
func runAssemble(_ context.Context, o *options) error {
	if o.output == "" {
		return fmt.Errorf("-o <out.pdf> is required")
	}
	if len(o.args) == 0 {
		return fmt.Errorf("no input images specified")
	}

	images := make([]kwpdf.SourceImage, 0, len(o.args))
	for _, path := range o.args {
		img, err := kwpdf.LoadSourceImage(path)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	p, err := o.paginator()
	if err != nil {
		return err
	}
	slices, err := p.Paginate(images)
	if err != nil {
		return err
	}
	title := strings.TrimSuffix(filepath.Base(o.output), filepath.Ext(o.output))
	res, err := kwpdf.Assemble(p.Geometry(), slices,
		kwpdf.WithTitle(title),
		kwpdf.WithMaxDPI(o.cfg.MaxDPI))
	if err != nil {
		return err
	}
	if err := res.WriteToFile(o.output, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d images, %d pages, %d bytes\n", o.output, len(images), res.Pages(), res.Len())
	return nil
}

// runInfo implements the "info" command.
func runInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input file specified")
	}
	inputFile := args[0]

	doc, err := pdfinfo.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inputFile, err)
	}

	pages, err := doc.Pages()
	if err != nil {
		return fmt.Errorf("reading pages: %w", err)
	}

	fmt.Printf("File:    %s\n", inputFile)
	fmt.Printf("Version: PDF-%s\n", doc.Version())
	fmt.Printf("Pages:   %d\n", len(pages))

	if len(pages) > 0 {
		fmt.Println()
		fmt.Println("Page dimensions:")
		for i, info := range pages {
			fmt.Printf("  Page %d: %.0f x %.0f pt", i+1, info.Width, info.Height)
			if info.Rotation != 0 {
				fmt.Printf(" (rotated %d°)", info.Rotation)
			}
			fmt.Println()
		}
	}

	return nil
}

// runDigit implements the "digit" command.
func runDigit(w io.Writer, args []string) error {
	switch len(args) {
	case 1:
		return printDigit(w, args[0])
	case 2, 3:
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number: %s", args[1])
		}
		to := from
		if len(args) == 3 {
			if to, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid number: %s", args[2])
			}
		}
		if from < 0 || to < from {
			return fmt.Errorf("invalid range %d-%d", from, to)
		}
		if _, err := kwpdf.ControlDigit(args[0], "00000000"); err != nil {
			return err
		}
		for id := range kwpdf.RecordRange(args[0], from, to) {
			fmt.Fprintln(w, id)
		}
		return nil
	}
	return fmt.Errorf("expected <CCCC/NNNNNNNN> or <CCCC> <from> [to]")
}

// printDigit completes "CCCC/NNNNNNNN", or checks a full identifier.
func printDigit(w io.Writer, s string) error {
	if id, err := kwpdf.ParseRecordID(s); err == nil {
		if err := id.Verify(); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s is valid\n", id)
		return nil
	}

	court, number, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "/")
	if !ok {
		return fmt.Errorf("%w: %q", kwpdf.ErrInvalidRecordID, s)
	}
	d, err := kwpdf.ControlDigit(court, number)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s/%s/%d\n", court, number, d)
	return nil
}

// newLogger builds a console logger for people or a JSON one for machines.
func newLogger(format string) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if format == "json" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}
