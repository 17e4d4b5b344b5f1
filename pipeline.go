package kwpdf

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Fetcher produces the ordered section images of one record.
// [Capturer] is the browser-backed implementation.
type Fetcher interface {
	Fetch(ctx context.Context, id RecordID) ([]SourceImage, error)
}

// Downloader turns one record into a PDF file and returns its path.
// [Pipeline] implements it.
type Downloader interface {
	Download(ctx context.Context, id RecordID) (string, error)
}

type pipelineConfig struct {
	outputDir  string
	docOptions []DocumentOption
	now        func() time.Time
	logger     *zap.Logger
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*pipelineConfig)

// WithOutputDir sets the directory PDFs are written to. Defaults to the
// current directory.
func WithOutputDir(dir string) PipelineOption {
	return func(c *pipelineConfig) {
		c.outputDir = dir
	}
}

// WithDocumentOptions passes options to every [Document] the pipeline
// builds.
func WithDocumentOptions(opts ...DocumentOption) PipelineOption {
	return func(c *pipelineConfig) {
		c.docOptions = append(c.docOptions, opts...)
	}
}

// WithPipelineLogger sets the logger used for progress messages.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(c *pipelineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Pipeline runs capture, pagination and assembly for one record at a time
// and writes the result to a file named after the record.
type Pipeline struct {
	fetcher   Fetcher
	paginator *Paginator
	cfg       pipelineConfig
}

// NewPipeline connects a fetcher to a paginator.
func NewPipeline(f Fetcher, p *Paginator, opts ...PipelineOption) *Pipeline {
	cfg := pipelineConfig{
		outputDir: ".",
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Pipeline{fetcher: f, paginator: p, cfg: cfg}
}

// Download fetches, lays out and writes the record. The file appears
// under its final name only once the whole document was written; on any
// error nothing is left behind.
func (p *Pipeline) Download(ctx context.Context, id RecordID) (string, error) {
	log := p.cfg.logger.With(zap.Stringer("record", id))

	images, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoCaptures, id)
	}

	res, err := p.Render(id, images)
	if err != nil {
		return "", err
	}

	path := filepath.Join(p.cfg.outputDir, id.FileName())
	if err := res.WriteToFile(path, 0o644); err != nil {
		return "", err
	}
	log.Info("document written", zap.String("path", path),
		zap.Int("images", len(images)), zap.Int("pages", res.Pages()))
	return path, nil
}

// Render paginates images and assembles them into a PDF titled after id.
func (p *Pipeline) Render(id RecordID, images []SourceImage) (*Result, error) {
	slices, err := p.paginator.Paginate(images)
	if err != nil {
		return nil, fmt.Errorf("kwpdf: paginating %s: %w", id, err)
	}
	p.cfg.logger.Debug("paginated", zap.Stringer("record", id),
		zap.Int("images", len(images)), zap.Int("slices", len(slices)))

	opts := append([]DocumentOption{
		WithTitle(id.String()),
		WithCreationTime(p.cfg.now()),
	}, p.cfg.docOptions...)
	res, err := Assemble(p.paginator.Geometry(), slices, opts...)
	if err != nil {
		return nil, fmt.Errorf("kwpdf: assembling %s: %w", id, err)
	}
	return res, nil
}
