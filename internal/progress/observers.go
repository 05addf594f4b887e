package progress

import (
	"fmt"
	"io"
	"log/slog"

	"fechador/internal/processor"
)

// LineObserver prints one line per event, for terminals without the TUI.
type LineObserver struct {
	w io.Writer
}

func NewLineObserver(w io.Writer) *LineObserver {
	return &LineObserver{w: w}
}

func (o *LineObserver) OnEvent(e Event) {
	if e.Outcome.Kind == processor.KindFatal {
		return
	}
	width := len(fmt.Sprint(e.Total))
	_, _ = fmt.Fprintf(o.w, "[%*d/%d] %s\n", width, e.Index, e.Total, e.Label())
}

// LogObserver records every event through slog.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(e Event) {
	switch e.Outcome.Kind {
	case processor.KindSuccess:
		o.logger.Info("progress", "current", e.Index, "total", e.Total, "source", e.Outcome.Source)
	case processor.KindItemFailure:
		o.logger.Warn("progress", "current", e.Index, "total", e.Total, "source", e.Outcome.Source, "failed", true)
	default:
		o.logger.Error("progress aborted", "completed", e.Index, "total", e.Total)
	}
}
