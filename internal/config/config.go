// Package config loads kwpdf settings from the environment and an optional
// .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the kwpdf commands. Command-line flags
// override these values.
type Config struct {
	OutputDir    string
	ChromePath   string
	NoSandbox    bool
	Headless     bool
	AutoDownload bool
	Timeout      time.Duration
	Pause        time.Duration
	Overlap      float64
	PageSize     string
	Landscape    bool
	MaxDPI       float64
	Verify       bool
	FailureLog   string
	DebugDir     string
	// LogFormat is "console" for human-readable output or "json".
	LogFormat string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OutputDir: ".",
		Headless:  true,
		Timeout:   120 * time.Second,
		Pause:     2 * time.Second,
		Overlap:   6,
		PageSize:  "a4",
		LogFormat: "console",
	}
}

// Load reads .env if present and then the KWPDF_* environment variables.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, starting from [Default].
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	e := env{get: getenv}

	c.OutputDir = e.str("KWPDF_OUTPUT_DIR", c.OutputDir)
	c.ChromePath = e.str("KWPDF_CHROME_PATH", c.ChromePath)
	c.NoSandbox = e.bool("KWPDF_NO_SANDBOX", c.NoSandbox)
	c.Headless = e.bool("KWPDF_HEADLESS", c.Headless)
	c.AutoDownload = e.bool("KWPDF_AUTO_DOWNLOAD", c.AutoDownload)
	c.Timeout = e.duration("KWPDF_TIMEOUT", c.Timeout)
	c.Pause = e.duration("KWPDF_PAUSE", c.Pause)
	c.Overlap = e.float("KWPDF_OVERLAP", c.Overlap)
	c.PageSize = strings.ToLower(e.str("KWPDF_PAGE_SIZE", c.PageSize))
	c.MaxDPI = e.float("KWPDF_MAX_DPI", c.MaxDPI)
	c.Verify = e.bool("KWPDF_VERIFY", c.Verify)
	c.FailureLog = e.str("KWPDF_FAILURE_LOG", c.FailureLog)
	c.DebugDir = e.str("KWPDF_DEBUG_DIR", c.DebugDir)
	c.LogFormat = strings.ToLower(e.str("KWPDF_LOG_FORMAT", c.LogFormat))

	switch o := strings.ToLower(e.str("KWPDF_ORIENTATION", "portrait")); o {
	case "portrait":
	case "landscape":
		c.Landscape = true
	default:
		e.fail("KWPDF_ORIENTATION", o, "portrait or landscape")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		e.fail("KWPDF_LOG_FORMAT", c.LogFormat, "console or json")
	}

	if e.err != nil {
		return Config{}, e.err
	}
	return c, nil
}

// env reads typed values and keeps the first parse error.
type env struct {
	get func(string) string
	err error
}

func (e *env) fail(key, value, want string) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s=%q: want %s", key, value, want)
	}
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) bool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(e.get(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.fail(key, v, "a boolean")
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		secs, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || secs < 0 {
			e.fail(key, v, "a duration such as 90s")
			return def
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d < 0 {
		e.fail(key, v, "a non-negative duration")
		return def
	}
	return d
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, "a number")
		return def
	}
	return f
}
