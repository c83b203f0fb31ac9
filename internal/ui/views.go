package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/normalize/internal/processor"
	meter "github.com/linuxmatters/normalize/internal/progress"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E86DE"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okIcon     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
	activeIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	warnIcon   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("!")
	errorIcon  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D63031")).Render("✗")
	queuedIcon = mutedStyle.Render("○")
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#888888")).
			Padding(0, 1)
)

func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	for i, f := range m.Files {
		b.WriteString(renderFileEntry(m, f, i))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

func renderHeader(m Model) string {
	title := titleStyle.Render("Normalize")
	subtitle := mutedStyle.Italic(true).Render(fmt.Sprintf("%s %d file(s)", m.Phase, len(m.Files)))
	return title + "\n" + subtitle
}

func renderFileEntry(m Model, f FileProgress, index int) string {
	name := filepath.Base(f.Path)

	switch f.Status {
	case StatusActive:
		icon := activeIcon.Render(spinnerFrames[m.spinner])
		if f.Progress <= 0 && f.ETA < 0 {
			return fmt.Sprintf(" %s %s", icon, name)
		}
		return fmt.Sprintf(" %s %s\n   %s %3.0f%%  ETA %s",
			icon, name, m.bar.ViewAs(f.Progress), f.Progress*100, meter.Clock(f.ETA))

	case StatusDone:
		return fmt.Sprintf(" %s %s  %s", okIcon, name, mutedStyle.Render(resultSummary(m.Phase, f.Result)))

	case StatusSkipped:
		return fmt.Sprintf(" %s %s  %s", okIcon, name, mutedStyle.Render("already normalized"))

	case StatusSilent:
		return fmt.Sprintf(" %s %s  %s", warnIcon, name, mutedStyle.Render("zero power, ignoring"))

	case StatusError:
		var err error
		if f.Result != nil {
			err = f.Result.Err
		}
		return fmt.Sprintf(" %s %s\n   Error: %v", errorIcon, name, err)

	default:
		return fmt.Sprintf(" %s %s", queuedIcon, name)
	}
}

// resultSummary describes a finished file in one line
func resultSummary(phase processor.Phase, r *processor.FileResult) string {
	if r == nil {
		return ""
	}
	if phase == processor.PhaseApply && r.Applied != nil {
		s := fmt.Sprintf("%+.2f dB", r.GainDB())
		if r.Applied.Clipped > 0 {
			s += fmt.Sprintf(", %d clipped", r.Applied.Clipped)
		}
		return s
	}
	if r.Info.Valid() {
		return fmt.Sprintf("level %.2f dBFS, peak %.2f dBFS",
			processor.LinearToDb(r.Info.Level), processor.LinearToDb(r.Info.Peak))
	}
	return ""
}

func renderOverallProgress(m Model) string {
	total := len(m.Files)
	done := m.CompletedFiles + m.FailedFiles
	content := fmt.Sprintf("%s\nBatch %3.0f%% (%d of %d files), ETA %s",
		m.bar.ViewAs(m.Batch), m.Batch*100, done, total, meter.Clock(m.BatchETA))
	return boxStyle.Render(content)
}

func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.Err != nil {
		b.WriteString(fmt.Sprintf(" %s %v\n", errorIcon, m.Err))
		return b.String()
	}

	s := m.Summary
	if s == nil {
		return ""
	}

	b.WriteString(titleStyle.Render("Normalization complete"))
	b.WriteString("\n\n")
	for _, r := range s.Files {
		name := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			b.WriteString(fmt.Sprintf(" %s %s  %v\n", errorIcon, name, r.Err))
		case r.Skipped:
			b.WriteString(fmt.Sprintf(" %s %s  %s\n", okIcon, name, mutedStyle.Render("already normalized")))
		case r.Applied != nil:
			b.WriteString(fmt.Sprintf(" %s %s  %s\n", okIcon, name, resultSummary(processor.PhaseApply, r)))
		default:
			b.WriteString(fmt.Sprintf(" %s %s  %s\n", okIcon, name, resultSummary(processor.PhaseAnalyze, r)))
		}
	}
	for _, r := range s.Rejected {
		b.WriteString(fmt.Sprintf(" %s %s  %v\n", warnIcon, filepath.Base(r.Path), r.Err))
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 40))
	b.WriteString("\n")
	if s.Batch != nil {
		b.WriteString(fmt.Sprintf("Average level %.2f dBFS\n", processor.LinearToDb(s.AverageLevel)))
	}
	b.WriteString(fmt.Sprintf("%d file(s) adjusted\n", s.Changed))

	return b.String()
}
