package ui

import (
	"github.com/linuxmatters/normalize/internal/processor"
	"github.com/linuxmatters/normalize/internal/progress"
)

// PhaseStartMsg starts a pass over Files
type PhaseStartMsg struct {
	Phase processor.Phase
	Files []string
}

// FileStartMsg indicates a file has started its pass
type FileStartMsg struct {
	Phase     processor.Phase
	FileIndex int
	FileName  string
}

// ProgressMsg carries a progress snapshot for the file at Snapshot.Index
type ProgressMsg struct {
	Snapshot progress.Snapshot
}

// FileCompleteMsg indicates a file has finished its pass
type FileCompleteMsg struct {
	Phase     processor.Phase
	FileIndex int
	Result    *processor.FileResult
}

// AllCompleteMsg indicates the run has finished
type AllCompleteMsg struct {
	Summary *processor.Summary
	Err     error
}
