package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fechador/internal/processor"
	"fechador/internal/progress"
)

// Model renders a running batch. It never waits on workers: every tick drains
// whatever the log holds and redraws.
type Model struct {
	src       progress.Source
	reporter  *progress.Reporter
	cancel    context.CancelFunc
	bar       bprogress.Model
	interval  time.Duration
	started   time.Time
	width     int
	cancelled bool
	quitting  bool
}

type tickMsg time.Time

// NewModel builds a model over src. cancel, when set, is called on ctrl+c.
func NewModel(src progress.Source, reporter *progress.Reporter, cancel context.CancelFunc) Model {
	return Model{
		src:      src,
		reporter: reporter,
		cancel:   cancel,
		bar: bprogress.New(
			bprogress.WithGradient(string(ColorAccentAlt), string(ColorAccent)),
			bprogress.WithWidth(40),
		),
		interval: progress.DefaultInterval,
		started:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick(m.interval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.reporter.Tick(m.src) != progress.Running {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tick(m.interval)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelled {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(m.width)
		return m, nil
	default:
		return m, nil
	}
}

// Done reports whether the batch reached a terminal state.
func (m Model) Done() bool { return m.quitting }

func (m Model) Cancelled() bool { return m.cancelled }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	processed, _, failed, total := m.reporter.Counts()
	ratio := 0.0
	if total > 0 {
		ratio = math.Min(1, float64(processed)/float64(total))
	}
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("fechador"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", processed, total)) + dimStyle.Render(fmt.Sprintf("  errors:%d", failed)),
	}
	if last := m.reporter.Last(); last.Index > 0 {
		lines = append(lines, eventStyle(last.Outcome.Kind).Render(last.Label()))
	}
	lines = append(lines,
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		m.bar.ViewAs(ratio),
	)
	if m.cancelled {
		lines = append(lines, warnStyle.Render("Cancelling, waiting for in-flight images..."))
	}
	return strings.Join(lines, "\n")
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func barWidth(termWidth int) int {
	if termWidth <= 0 {
		return 40
	}
	w := int(math.Min(60, float64(termWidth-10)))
	if w < 20 {
		w = 20
	}
	return w
}

func eventStyle(kind processor.OutcomeKind) lipgloss.Style {
	switch kind {
	case processor.KindSuccess:
		return successStyle
	case processor.KindItemFailure:
		return warnStyle
	default:
		return errorStyle
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(ColorInk)
	dimStyle     = lipgloss.NewStyle().Foreground(ColorDim)
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(ColorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)
