// Package ui renders normalization progress, as a Bubbletea interface on
// terminals or as a single-line meter elsewhere.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/normalize/internal/processor"
)

// FileStatus represents the state of a single file in the current pass
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusActive
	StatusDone
	StatusSkipped
	StatusSilent
	StatusError
)

// FileProgress tracks one file through the current pass
type FileProgress struct {
	Path     string
	Status   FileStatus
	Progress float64 // 0.0 to 1.0
	ETA      time.Duration
	Result   *processor.FileResult
}

// Model is the Bubbletea model for a normalization run
type Model struct {
	Files        []FileProgress
	Phase        processor.Phase
	CurrentIndex int

	Batch    float64
	BatchETA time.Duration

	CompletedFiles int
	FailedFiles    int

	StartTime   time.Time
	Done        bool
	Interrupted bool
	Summary     *processor.Summary
	Err         error

	Width  int
	Height int

	bar     progress.Model
	spinner int
}

// Spinner frames for files with no measurable progress, such as stdin
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

// NewModel creates an empty model; files arrive with PhaseStartMsg
func NewModel() Model {
	return Model{
		CurrentIndex: -1,
		StartTime:    time.Now(),
		bar:          progress.New(progress.WithGradient("#2E86DE", "#54A0FF"), progress.WithoutPercentage()),
		BatchETA:     -1,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Interrupted = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.bar.Width = max(10, min(msg.Width-24, 50))

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinner = (m.spinner + 1) % len(spinnerFrames)
		return m, tickCmd()

	case PhaseStartMsg:
		m.Phase = msg.Phase
		m.Files = make([]FileProgress, len(msg.Files))
		for i, path := range msg.Files {
			m.Files[i] = FileProgress{Path: path, Status: StatusQueued, ETA: -1}
		}
		m.CurrentIndex = -1
		m.CompletedFiles, m.FailedFiles = 0, 0
		m.Batch, m.BatchETA = 0, -1

	case FileStartMsg:
		if f := m.file(msg.FileIndex); f != nil {
			f.Status = StatusActive
			m.CurrentIndex = msg.FileIndex
		}

	case ProgressMsg:
		s := msg.Snapshot
		if f := m.file(s.Index); f != nil {
			f.Progress = s.File
			f.ETA = s.FileETA
		}
		m.Batch = s.Batch
		m.BatchETA = s.BatchETA

	case FileCompleteMsg:
		f := m.file(msg.FileIndex)
		if f == nil {
			break
		}
		f.Result = msg.Result
		f.Progress = 1
		f.Status = completedStatus(msg.Phase, msg.Result)
		if f.Status == StatusError {
			m.FailedFiles++
		} else {
			m.CompletedFiles++
		}
		if n := len(m.Files); n > 0 {
			m.Batch = max(m.Batch, float64(m.CompletedFiles+m.FailedFiles)/float64(n))
		}

	case AllCompleteMsg:
		m.Done = true
		m.Summary = msg.Summary
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) file(index int) *FileProgress {
	if index < 0 || index >= len(m.Files) {
		return nil
	}
	return &m.Files[index]
}

func completedStatus(phase processor.Phase, r *processor.FileResult) FileStatus {
	switch {
	case r == nil || r.Err != nil:
		return StatusError
	case phase == processor.PhaseAnalyze && !r.Info.Valid():
		return StatusSilent
	case r.Skipped:
		return StatusSkipped
	}
	return StatusDone
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 && !m.Done {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}
