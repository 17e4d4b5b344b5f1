package kwpdf

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Outcome is the result of processing one identifier in a batch.
type Outcome struct {
	ID   string
	Path string
	Err  error
}

// OK reports whether the record was written successfully.
func (o Outcome) OK() bool { return o.Err == nil }

// Report aggregates the outcomes of a batch run in input order.
type Report struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

// FailedIDs returns the identifiers that could not be processed.
func (r Report) FailedIDs() []string {
	return slice.FilterMap(r.Outcomes, func(_ int, o Outcome) (string, bool) {
		return o.ID, !o.OK()
	})
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// FailureLog records identifiers that failed, for later retry.
type FailureLog interface {
	Record(id string, err error) error
}

// FileFailureLog appends one JSON line per failure to a file.
type FileFailureLog struct {
	f      *os.File
	logger *zap.Logger
}

// OpenFailureLog opens path for appending, creating it if needed. Earlier
// entries are never rewritten.
func OpenFailureLog(path string) (*FileFailureLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("kwpdf: opening failure log: %w", err)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.DebugLevel)
	return &FileFailureLog{f: f, logger: zap.New(core)}, nil
}

// Record appends the failure and flushes it to disk.
func (l *FileFailureLog) Record(id string, err error) error {
	l.logger.Error("record failed", zap.String("id", id), zap.String("error", err.Error()))
	return l.logger.Sync()
}

// Close closes the underlying file.
func (l *FileFailureLog) Close() error {
	return l.f.Close()
}

type batchConfig struct {
	failures FailureLog
	pause    time.Duration
	verify   bool
	logger   *zap.Logger
}

// BatchOption configures a [Batch].
type BatchOption func(*batchConfig)

// WithFailureLog appends every failed identifier to l.
func WithFailureLog(l FailureLog) BatchOption {
	return func(c *batchConfig) {
		c.failures = l
	}
}

// WithPause waits d between consecutive records.
func WithPause(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		c.pause = d
	}
}

// WithVerifiedIDs rejects identifiers whose control digit is wrong before
// any request is made.
func WithVerifiedIDs() BatchOption {
	return func(c *batchConfig) {
		c.verify = true
	}
}

// WithBatchLogger sets the logger used for progress messages.
func WithBatchLogger(l *zap.Logger) BatchOption {
	return func(c *batchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Batch processes a list of identifiers sequentially. A failing record is
// recorded and skipped; it never stops the records after it.
type Batch struct {
	dl  Downloader
	cfg batchConfig
}

// NewBatch returns a Batch that downloads with d.
func NewBatch(d Downloader, opts ...BatchOption) *Batch {
	cfg := batchConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Batch{dl: d, cfg: cfg}
}

// Run processes ids in order and returns one outcome per processed
// identifier. It stops early only when ctx is done, returning the partial
// report together with the context error.
func (b *Batch) Run(ctx context.Context, ids []string) (Report, error) {
	var rep Report
	for i, raw := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if i > 0 && b.cfg.pause > 0 {
			if err := sleep(ctx, b.cfg.pause); err != nil {
				return rep, err
			}
		}

		b.cfg.logger.Info("processing record", zap.String("id", raw),
			zap.Int("index", i+1), zap.Int("total", len(ids)))
		o := b.one(ctx, raw)
		if !o.OK() && ctx.Err() != nil {
			// Interrupted, not a property of the record.
			return rep, ctx.Err()
		}
		rep.add(o)
		if o.OK() {
			continue
		}

		b.cfg.logger.Warn("record failed", zap.String("id", raw), zap.Error(o.Err))
		if b.cfg.failures != nil {
			if err := b.cfg.failures.Record(raw, o.Err); err != nil {
				b.cfg.logger.Error("writing failure log", zap.String("id", raw), zap.Error(err))
			}
		}
	}
	b.cfg.logger.Info("batch finished",
		zap.Int("succeeded", rep.Succeeded), zap.Int("failed", rep.Failed))
	return rep, nil
}

func (b *Batch) one(ctx context.Context, raw string) Outcome {
	id, err := ParseRecordID(raw)
	if err == nil && b.cfg.verify {
		err = id.Verify()
	}
	if err != nil {
		return Outcome{ID: raw, Err: err}
	}
	path, err := b.dl.Download(ctx, id)
	return Outcome{ID: id.String(), Path: path, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
