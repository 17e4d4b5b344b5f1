package kwpdf

import (
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public land-register viewer.
const DefaultBaseURL = "https://przegladarka-ekw.ms.gov.pl/eukw_prz/KsiegiWieczyste/wyszukiwanieKW"

// DefaultTabs are the register sections captured for every record, in
// document order.
var DefaultTabs = []string{
	"Dział I-O",
	"Dział I-Sp",
	"Dział II",
	"Dział III",
	"Dział IV",
}

// capturerConfig holds internal configuration for a Capturer.
type capturerConfig struct {
	chromePath     string
	timeout        time.Duration
	noSandbox      bool
	headless       bool
	autoDownload   bool
	baseURL        string
	tabs           []string
	settleDelay    time.Duration
	viewportWidth  int
	viewportHeight int
	debugDir       string
	logger         *zap.Logger
}

func defaultConfig() capturerConfig {
	return capturerConfig{
		timeout:        120 * time.Second,
		headless:       true,
		baseURL:        DefaultBaseURL,
		tabs:           DefaultTabs,
		settleDelay:    2 * time.Second,
		viewportWidth:  1920,
		viewportHeight: 1080,
		logger:         zap.NewNop(),
	}
}

// Option configures a [Capturer].
type Option func(*capturerConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *capturerConfig) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration for capturing a single record.
// Defaults to 120 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *capturerConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *capturerConfig) {
		c.noSandbox = true
	}
}

// WithHeadless controls whether the browser window is hidden. Defaults to
// true; pass false to watch the session.
func WithHeadless(headless bool) Option {
	return func(c *capturerConfig) {
		c.headless = headless
	}
}

// WithAutoDownload fetches a compatible Chromium build when no browser
// path is configured.
func WithAutoDownload() Option {
	return func(c *capturerConfig) {
		c.autoDownload = true
	}
}

// WithBaseURL overrides the address of the viewer's search form.
func WithBaseURL(u string) Option {
	return func(c *capturerConfig) {
		c.baseURL = u
	}
}

// WithTabs replaces the list of section buttons that are captured.
func WithTabs(tabs ...string) Option {
	return func(c *capturerConfig) {
		c.tabs = append([]string(nil), tabs...)
	}
}

// WithSettleDelay sets how long to wait after each navigation for the
// viewer's scripts to finish rendering. Defaults to 2 seconds.
func WithSettleDelay(d time.Duration) Option {
	return func(c *capturerConfig) {
		c.settleDelay = d
	}
}

// WithViewport sets the browser window size in CSS pixels. Captures are
// as wide as the viewport. Defaults to 1920x1080.
func WithViewport(width, height int) Option {
	return func(c *capturerConfig) {
		c.viewportWidth = width
		c.viewportHeight = height
	}
}

// WithDebugDir saves every capture as a PNG under dir, named after the
// record and section.
func WithDebugDir(dir string) Option {
	return func(c *capturerConfig) {
		c.debugDir = dir
	}
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *capturerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
