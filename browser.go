package kwpdf

import (
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// resolveBrowser returns an installed Chrome or Chromium, or downloads a
// compatible Chromium build into the rod cache (~/.cache/rod/browser on
// Unix, %APPDATA%\rod\browser on Windows) when none is found.
func resolveBrowser(log *zap.Logger) (string, error) {
	if path, found := launcher.LookPath(); found {
		log.Debug("using installed browser", zap.String("path", path))
		return path, nil
	}
	log.Info("no browser found, downloading Chromium")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("kwpdf: downloading browser: %w", err)
	}
	return path, nil
}

// allocatorOptions returns the flags the browser process is started with.
// The viewer is Polish-only, so the browser announces a Polish locale.
func allocatorOptions(cfg capturerConfig) []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("lang", "pl-PL"),
		chromedp.Flag("headless", cfg.headless),
		chromedp.WindowSize(cfg.viewportWidth, cfg.viewportHeight),
	)
	if cfg.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}
