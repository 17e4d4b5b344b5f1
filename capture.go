package kwpdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// Element selectors of the viewer's search form and result page.
const (
	courtInput   = `#kodWydzialuInput`
	numberInput  = `#numerKsiegiWieczystej`
	checkInput   = `#cyfraKontrolna`
	searchButton = `#wyszukaj`
	viewButton   = `input[value="Przeglądanie aktualnej treści KW"]`
)

// tabLookup bounds the wait for a single section button. Missing sections
// are skipped, so this should stay short.
const tabLookup = 5 * time.Second

// Capturer drives a browser through the register viewer and captures each
// section of a record as a full-page screenshot.
//
// A Capturer manages one browser process that is reused across records;
// every record gets a fresh tab. Records are captured one at a time.
//
// Call [Capturer.Close] when the Capturer is no longer needed to release
// browser resources.
type Capturer struct {
	cfg           capturerConfig
	log           *zap.Logger
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewCapturer creates a Capturer with the given options.
//
// It starts the browser eagerly so configuration errors surface here. The
// caller must call [Capturer.Close] when finished.
func NewCapturer(opts ...Option) (*Capturer, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.chromePath == "" && cfg.autoDownload {
		path, err := resolveBrowser(cfg.logger)
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("kwpdf: starting browser: %w", err)
	}

	return &Capturer{
		cfg:           cfg,
		log:           cfg.logger,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Capturer, including the
// browser process. Close is idempotent.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Fetch looks up the record in the viewer and returns one image per
// captured section, in section order. Sections whose button cannot be
// found are skipped; when none can be captured the whole result page is
// returned as a single image instead.
func (c *Capturer) Fetch(ctx context.Context, id RecordID) ([]SourceImage, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, c.cfg.timeout)
		defer cancel()
	}

	log := c.log.With(zap.Stringer("record", id))
	log.Info("opening record", zap.String("url", c.cfg.baseURL))

	if err := chromedp.Run(tabCtx, c.openRecord(id)...); err != nil {
		return nil, c.wrapErr(ctx, id, "opening record", err)
	}

	var images []SourceImage
	for i, tab := range c.cfg.tabs {
		img, found, err := c.captureTab(tabCtx, id, i, tab)
		if err != nil {
			if ctx.Err() != nil || tabCtx.Err() != nil {
				return nil, c.wrapErr(ctx, id, "capturing "+tab, err)
			}
			log.Warn("section capture failed", zap.String("tab", tab), zap.Error(err))
			continue
		}
		if !found {
			log.Warn("section not found", zap.String("tab", tab))
			continue
		}
		log.Info("captured section", zap.String("tab", tab),
			zap.Int("width", img.Width), zap.Int("height", img.Height))
		images = append(images, img)
	}

	if len(images) == 0 {
		log.Warn("no section captured, taking whole page")
		img, err := c.screenshot(tabCtx, id, "page", 0)
		if err != nil {
			return nil, c.wrapErr(ctx, id, "capturing page", err)
		}
		images = append(images, img)
	}
	return images, nil
}

// openRecord fills the search form and opens the current content view.
func (c *Capturer) openRecord(id RecordID) []chromedp.Action {
	settle := chromedp.Sleep(c.cfg.settleDelay)
	return []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "pl-PL,pl;q=0.9"}),
		emulation.SetDeviceMetricsOverride(int64(c.cfg.viewportWidth), int64(c.cfg.viewportHeight), 1, false),
		chromedp.Navigate(c.cfg.baseURL),
		chromedp.WaitVisible(courtInput, chromedp.ByQuery),
		settle,

		// The court field is an autocomplete; pick the first suggestion.
		chromedp.Click(courtInput, chromedp.ByQuery),
		chromedp.SendKeys(courtInput, id.Court, chromedp.ByQuery),
		settle,
		chromedp.KeyEvent(kb.ArrowDown),
		chromedp.KeyEvent(kb.Enter),
		settle,

		chromedp.SendKeys(numberInput, id.Number, chromedp.ByQuery),
		chromedp.SendKeys(checkInput, id.Check, chromedp.ByQuery),
		chromedp.Click(searchButton, chromedp.ByQuery),

		chromedp.WaitVisible(viewButton, chromedp.ByQuery),
		settle,
		chromedp.Click(viewButton, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		settle,
	}
}

// captureTab switches to one section and screenshots it. found is false
// when the section button does not exist on the page.
func (c *Capturer) captureTab(ctx context.Context, id RecordID, idx int, tab string) (SourceImage, bool, error) {
	sel := `input[type="submit"][value="` + tab + `"]`

	lookupCtx, cancel := context.WithTimeout(ctx, tabLookup)
	err := chromedp.Run(lookupCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return SourceImage{}, false, err
		}
		return SourceImage{}, false, nil
	}

	if err := chromedp.Run(ctx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.cfg.settleDelay),
	); err != nil {
		return SourceImage{}, true, err
	}

	img, err := c.screenshot(ctx, id, tab, idx+1)
	if err != nil {
		return SourceImage{}, true, err
	}
	return img, true, nil
}

// screenshot captures the full scrollable page as PNG.
func (c *Capturer) screenshot(ctx context.Context, id RecordID, label string, idx int) (SourceImage, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return SourceImage{}, err
	}

	name := fmt.Sprintf("%s_%02d_%s.png", SafeFileName(id.String()), idx, SafeFileName(label))
	img, err := NewSourceImage(name, buf)
	if err != nil {
		return SourceImage{}, err
	}

	if c.cfg.debugDir != "" {
		path := filepath.Join(c.cfg.debugDir, name)
		werr := os.MkdirAll(c.cfg.debugDir, 0o755)
		if werr == nil {
			werr = os.WriteFile(path, buf, 0o644)
		}
		if werr != nil {
			c.log.Warn("saving debug capture", zap.String("path", path), zap.Error(werr))
		}
	}
	return img, nil
}

// wrapErr prefers the caller's cancellation reason over chromedp's.
func (c *Capturer) wrapErr(ctx context.Context, id RecordID, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return fmt.Errorf("kwpdf: %s %s: %w", step, id, err)
}

func (c *Capturer) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}
