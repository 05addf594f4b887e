package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fechador/internal/processor"
)

// Tone colors a summary value.
type Tone int

const (
	ToneNormal Tone = iota
	ToneGood
	ToneBad
)

type SummaryRow struct {
	Label string
	Value string
	Tone  Tone
}

// RenderSummary lays rows out as an aligned two-column block. Widths are
// measured in cells so accented labels line up.
func RenderSummary(title string, rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}
	labelWidth = max(labelWidth, lipgloss.Width(title))

	hline := dimStyle.Render(strings.Repeat("─", labelWidth+valueWidth+3))
	lines := []string{titleStyle.Render(title), hline}
	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s │ %s", labelStyle.Render(label), toneStyle(row.Tone).Render(value)))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderFailures tabulates item failures with their file and first detail
// line. It returns "" when there are none.
func RenderFailures(failures []processor.Outcome) string {
	if len(failures) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Archivo", "Detalle"})
	for i, f := range failures {
		tw.AppendRow(table.Row{i + 1, filepath.Base(f.Source), firstLine(f.Detail)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, WidthMax: 72},
	})
	return tw.Render()
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func toneStyle(t Tone) lipgloss.Style {
	switch t {
	case ToneGood:
		return valueStyle.Foreground(ColorSuccess)
	case ToneBad:
		return valueStyle.Foreground(ColorError)
	default:
		return valueStyle
	}
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
