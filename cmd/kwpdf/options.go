package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	kwpdf "github.com/porticus-lab/go-kw-pdf"
	"github.com/porticus-lab/go-kw-pdf/internal/config"
)

// options is the configuration of one command after flags were applied.
type options struct {
	cfg    config.Config
	output string
	args   []string
}

// parseOptions applies command-line options on top of cfg. Options and
// positional arguments may be mixed; a lone "-" is positional.
func parseOptions(cfg config.Config, args []string) (*options, error) {
	o := &options{cfg: cfg}

	value := func(i *int) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("requires an argument")
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		var (
			name = args[i]
			v    string
			err  error
		)
		switch name {
		case "-o":
			o.output, err = value(&i)
		case "-page":
			if v, err = value(&i); err == nil {
				o.cfg.PageSize = strings.ToLower(v)
			}
		case "-landscape":
			o.cfg.Landscape = true
		case "-overlap":
			if v, err = value(&i); err == nil {
				o.cfg.Overlap, err = strconv.ParseFloat(v, 64)
			}
		case "-dpi":
			if v, err = value(&i); err == nil {
				o.cfg.MaxDPI, err = strconv.ParseFloat(v, 64)
			}
		case "-chrome":
			o.cfg.ChromePath, err = value(&i)
		case "-download-browser":
			o.cfg.AutoDownload = true
		case "-no-sandbox":
			o.cfg.NoSandbox = true
		case "-show":
			o.cfg.Headless = false
		case "-timeout":
			if v, err = value(&i); err == nil {
				o.cfg.Timeout, err = time.ParseDuration(v)
			}
		case "-pause":
			if v, err = value(&i); err == nil {
				o.cfg.Pause, err = time.ParseDuration(v)
			}
		case "-debug-dir":
			o.cfg.DebugDir, err = value(&i)
		case "-failures":
			o.cfg.FailureLog, err = value(&i)
		case "-verify":
			o.cfg.Verify = true
		case "-json":
			o.cfg.LogFormat = "json"
		default:
			if strings.HasPrefix(name, "-") && name != "-" {
				return nil, fmt.Errorf("unknown option: %s", name)
			}
			o.args = append(o.args, name)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return o, nil
}

// geometry resolves the configured paper name and orientation.
func (o *options) geometry() (kwpdf.PageGeometry, error) {
	size, ok := kwpdf.PageSizes[o.cfg.PageSize]
	if !ok {
		return kwpdf.PageGeometry{}, fmt.Errorf("unknown page size %q", o.cfg.PageSize)
	}
	orientation := kwpdf.Portrait
	if o.cfg.Landscape {
		orientation = kwpdf.Landscape
	}
	return size.Geometry(orientation), nil
}

func (o *options) paginator() (*kwpdf.Paginator, error) {
	g, err := o.geometry()
	if err != nil {
		return nil, err
	}
	return kwpdf.NewPaginator(g, kwpdf.WithOverlap(o.cfg.Overlap))
}

func (o *options) capturerOptions(log *zap.Logger) []kwpdf.Option {
	opts := []kwpdf.Option{
		kwpdf.WithTimeout(o.cfg.Timeout),
		kwpdf.WithHeadless(o.cfg.Headless),
		kwpdf.WithLogger(log),
	}
	if o.cfg.ChromePath != "" {
		opts = append(opts, kwpdf.WithChromePath(o.cfg.ChromePath))
	}
	if o.cfg.NoSandbox {
		opts = append(opts, kwpdf.WithNoSandbox())
	}
	if o.cfg.AutoDownload {
		opts = append(opts, kwpdf.WithAutoDownload())
	}
	if o.cfg.DebugDir != "" {
		opts = append(opts, kwpdf.WithDebugDir(o.cfg.DebugDir))
	}
	return opts
}
