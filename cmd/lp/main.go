// Command lp prints a JSON label template on a serial thermal label
// printer.  Run with -dry to render without a printer attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pterm/pterm"
	"github.com/rusq/osenv/v2"

	"github.com/rusq/labelprint"
	"github.com/rusq/labelprint/render"
	"github.com/rusq/labelprint/template"
)

type config struct {
	labelprint.PrinterConfig
	dims labelprint.Dimensions

	templateDir string
	debugDir    string
	dryRun      bool
	verbose     bool
	jsonLog     bool

	vars map[string]any
}

var cliflags = config{vars: make(map[string]any)}

func init() {
	flag.StringVar(&cliflags.PortPath, "port", osenv.Value("LP_PORT", "/dev/ttyUSB0"), "serial `port` of the printer")
	flag.IntVar(&cliflags.BaudRate, "baud", osenv.Value("LP_BAUD", labelprint.DefaultBaudRate), "serial baud `rate`")
	flag.IntVar(&cliflags.PacketSize, "packet-size", labelprint.DefaultPacketSize, "maximum `bytes` per serial write")
	flag.DurationVar(&cliflags.PacketDelay, "packet-delay", labelprint.DefaultPacketDelay, "pause between packets")
	flag.DurationVar(&cliflags.ExitDelay, "exit-delay", labelprint.DefaultExitDelay, "wait before closing the port")
	flag.DurationVar(&cliflags.FirmwareTimeout, "fw-timeout", labelprint.DefaultFirmwareTimeout, "firmware handshake `timeout`")

	flag.IntVar(&cliflags.dims.Width, "width", osenv.Value("LP_WIDTH", 384), "label width in `dots`")
	flag.IntVar(&cliflags.dims.Height, "height", osenv.Value("LP_HEIGHT", 25), "label height in `modules` of 8 dots")
	flag.IntVar(&cliflags.dims.DPI, "dpi", osenv.Value("LP_DPI", 203), "printer resolution")

	flag.StringVar(&cliflags.templateDir, "templates", osenv.Value("LP_TEMPLATES", "."), "template `directory` for lookups by name")
	flag.StringVar(&cliflags.debugDir, "debug-dir", "", "write debug artifacts (PNG, sidecar JSON) to `dir`")
	flag.BoolVar(&cliflags.dryRun, "dry", osenv.Value("DRY_RUN", false), "render only, do not open the serial port")
	flag.BoolVar(&cliflags.verbose, "v", osenv.Value("DEBUG", false), "verbose messages")
	flag.BoolVar(&cliflags.jsonLog, "log-json", false, "log in JSON format")

	flag.Func("var", "template variable `key=value` (repeatable)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return fmt.Errorf("expected key=value, got %q", s)
		}
		cliflags.vars[k] = v
		return nil
	})

	flag.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "Usage: %s [flags] <template.json|template-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	initLog(cliflags.verbose, cliflags.jsonLog)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cliflags, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func initLog(verbose, jsonLog bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var h slog.Handler
	if jsonLog {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	}
	slog.SetDefault(slog.New(h))
}

func run(ctx context.Context, cfg config, arg string) error {
	tpl, err := loadTemplate(cfg.templateDir, arg)
	if err != nil {
		return err
	}

	debugDir := cfg.debugDir
	if cfg.dryRun && debugDir == "" {
		debugDir = "."
	}
	var ropt []render.Option
	if debugDir != "" {
		ropt = append(ropt, render.WithDebugDir(debugDir))
	}
	r := render.New(ropt...)

	if cfg.dryRun {
		return dryRun(tpl, cfg, r)
	}

	var bar *pterm.ProgressbarPrinter
	progress := func(sent, total int) {
		if bar == nil {
			bar, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("sending").Start()
		}
		bar.Increment()
	}
	defer func() {
		if bar != nil {
			bar.Stop()
		}
	}()

	tx := labelprint.New(cfg.PrinterConfig, r, labelprint.WithProgress(progress))
	rep, err := tx.Run(ctx, labelprint.Job{
		Template:   tpl,
		Variables:  cfg.vars,
		Dimensions: cfg.dims,
	})
	if err != nil {
		return err
	}
	slog.Info("done", "run_id", rep.RunID, "firmware", rep.Firmware,
		"splits", rep.Splits, "packets", rep.Packets, "bytes", rep.Bytes, "elapsed", rep.Elapsed)
	return nil
}

// dryRun renders and packs without engaging the serial channel, reporting
// what a real run would have sent.
func dryRun(tpl *template.Template, cfg config, r *render.Renderer) error {
	img, err := r.Render(tpl, cfg.vars, cfg.dims)
	if err != nil {
		return err
	}
	packed := labelprint.PackImage(img)
	splits := labelprint.SplitPacked(packed)
	slog.Info("dry run", "template", tpl.Name,
		"columns", packed.Width, "rows", packed.Rows, "bytes", len(packed.Data), "splits", len(splits))
	return nil
}

func loadTemplate(dir, arg string) (*template.Template, error) {
	if filepath.Ext(arg) == "" {
		return template.ByName(dir, arg)
	}
	return template.Load(arg)
}
