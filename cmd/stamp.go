package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"fechador/internal/config"
	"fechador/internal/logging"
	"fechador/internal/metrics"
	"fechador/internal/processor"
	"fechador/internal/progress"
	"fechador/internal/report"
	"fechador/internal/stamp"
	"fechador/internal/tui"
)

func newStampCmd(root *rootOptions) *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "stamp [flags] <path>...",
		Short: "Stamp text onto images and write annotated copies",
		Long: `Stamp text onto every image found in the given paths. Files are used as
given; directories contribute their supported images (.jpg .jpeg .png .bmp
.gif .tif .tiff .webp). Annotated copies keep their file names and go to
--output, or to an "annotated" folder next to the sources when they all
share one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, true)
			if err != nil {
				return err
			}
			return runStamp(cmd, cfg, args, noTUI)
		},
	}

	addStyleFlags(cmd)
	f := cmd.Flags()
	f.Bool("turbo", true, "process images in parallel")
	f.Int("parallelism", 0, "parallelism available to turbo mode (0 = all CPUs); one core is left free")
	f.StringP("output", "o", "", "destination folder for annotated copies")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.String("metrics-file", "", "write Prometheus metrics for the batch to this file")
	f.BoolVar(&noTUI, "no-tui", false, "print one line per image instead of the interactive progress view")

	return cmd
}

// addStyleFlags defines the flags that make up a stamp.Style.
func addStyleFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("text", "15/12/2025", "text stamped on every image")
	f.String("font", "Go-Regular.ttf", "font name: a built-in Go font or a file in --font-dir")
	f.Int("size", 36, "font size in pixels")
	f.String("color", "255,255,255", `text color as "r,g,b", "#rrggbb" or a name`)
	f.String("anchor", "bottom-right", "corner: top-left, top-right, bottom-left, bottom-right")
	f.Int("margin", 20, "distance from the corner in pixels")
	f.Bool("use-margin", true, "apply --margin (false places text flush with the corner)")
	f.Bool("exif-date", false, "use each image's EXIF capture date as the text when present")
	f.String("date-layout", "02/01/2006", "Go time layout for --exif-date")
	f.String("preset", "", "style preset file (.yaml, .toml or .json)")
}

func runStamp(cmd *cobra.Command, cfg *config.Config, args []string, noTUI bool) error {
	style, err := cfg.Style()
	if err != nil {
		return err
	}

	items, err := processor.CollectItems(args, cfg.Recursive, cfg.Output)
	if err != nil {
		return err
	}
	outputDir, err := processor.ResolveOutputDir(items, cfg.Output)
	if err != nil {
		return err
	}
	if abs, absErr := filepath.Abs(outputDir); absErr == nil {
		outputDir = abs
	}
	if err := processor.Validate(items, style); err != nil {
		return err
	}

	useTUI := !noTUI && isTerminal(out(cmd))
	logger, closeLog, err := newLogger(cmd, cfg, useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	recorder := metrics.NewRecorder()
	dist := processor.New(
		stamp.Stamper{Fonts: cfg.Fonts(), Quality: stamp.DefaultQuality},
		processor.WithLogger(logger),
		processor.WithRecorder(recorder),
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	batch, err := dist.Start(ctx, items, processor.Options{
		OutputDir:   outputDir,
		Style:       style,
		Turbo:       cfg.Turbo,
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		return err
	}

	var observers []progress.Observer
	if cfg.Log.File != "" {
		observers = append(observers, progress.NewLogObserver(logger))
	}
	if !useTUI {
		observers = append(observers, progress.NewLineObserver(out(cmd)))
	}
	reporter := progress.NewReporter(len(items), observers...)

	if useTUI {
		program := tea.NewProgram(tui.NewModel(batch, reporter, cancel), tea.WithOutput(out(cmd)))
		if _, err := program.Run(); err != nil {
			logger.Warn("progress view failed", "error", err)
		}
	}
	// Covers the plain mode and a progress view that exited early.
	progress.Poll(batch, reporter, progress.DefaultInterval)
	<-batch.Finished()

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	res := reporter.Result()
	if res.State == progress.FatalAbort {
		return errors.New(report.FatalMessage(res.Fatal, res.Processed, res.Total))
	}

	summary := report.Summary{
		Total:     res.Total,
		Succeeded: res.Succeeded,
		Failures:  res.Failures,
		OutputDir: outputDir,
	}
	logPath, logErr := report.WriteFailureLog(summary)
	if logErr != nil {
		logger.Warn("failure log not written", "error", logErr)
	} else if logPath != "" {
		logger.Info("failure log written", "path", logPath)
	}

	printSummary(out(cmd), summary, logErr)
	return nil
}

func printSummary(w io.Writer, s report.Summary, logErr error) {
	failedTone := tui.ToneNormal
	if s.Failed() > 0 {
		failedTone = tui.ToneBad
	}
	rows := []tui.SummaryRow{
		{Label: "Total de imágenes", Value: strconv.Itoa(s.Total)},
		{Label: "Procesadas correctamente", Value: strconv.Itoa(s.Succeeded), Tone: tui.ToneGood},
		{Label: "Con errores", Value: strconv.Itoa(s.Failed()), Tone: failedTone},
	}
	fmt.Fprintln(w, tui.RenderSummary("fechador 📅", rows))
	if table := tui.RenderFailures(s.Failures); table != "" {
		fmt.Fprintln(w, table)
	}
	fmt.Fprintln(w)

	style := messageStyle
	if s.Failed() > 0 {
		style = warnTextStyle
	}
	fmt.Fprintln(w, style.Render(report.Message(s, logErr)))
}

// newLogger sends logs to --log-file when set. Without a file, logs go to
// stderr unless the progress view owns the terminal.
func newLogger(cmd *cobra.Command, cfg *config.Config, useTUI bool) (*slog.Logger, func(), error) {
	var w io.Writer
	closeFn := func() {}
	switch {
	case cfg.Log.File != "":
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { _ = f.Close() }
	case !useTUI:
		w = cmd.ErrOrStderr()
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: w})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var (
	messageStyle   = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	warnTextStyle  = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	errorTextStyle = lipgloss.NewStyle().Foreground(tui.ColorError)
)
