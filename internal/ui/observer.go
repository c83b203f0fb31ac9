package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/normalize/internal/processor"
	meter "github.com/linuxmatters/normalize/internal/progress"
)

// phaseTracker swaps in a fresh tracker at every phase
type phaseTracker struct {
	mu      sync.Mutex
	tracker *meter.Tracker
}

func (p *phaseTracker) start(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker = meter.NewTracker(paths, meter.SizeTable(paths))
}

func (p *phaseTracker) current() *meter.Tracker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracker
}

var (
	_ processor.Observer = (*Reporter)(nil)
	_ processor.Observer = (*LineMeter)(nil)
)

// Reporter forwards run events to a Bubbletea program
type Reporter struct {
	send func(tea.Msg)
	phaseTracker
}

// NewReporter returns an observer that delivers messages through send,
// usually (*tea.Program).Send.
func NewReporter(send func(tea.Msg)) *Reporter {
	return &Reporter{send: send}
}

func (r *Reporter) PhaseStart(phase processor.Phase, paths []string) {
	r.start(paths)
	r.send(PhaseStartMsg{Phase: phase, Files: paths})
}

func (r *Reporter) FileStart(phase processor.Phase, index int, path string) {
	if t := r.current(); t != nil {
		t.FileStart(index)
	}
	r.send(FileStartMsg{Phase: phase, FileIndex: index, FileName: path})
}

func (r *Reporter) Progress(index int, _ string, fraction float64) {
	t := r.current()
	if t == nil {
		return
	}
	if snap, ok := t.Update(index, fraction); ok {
		r.send(ProgressMsg{Snapshot: snap})
	}
}

func (r *Reporter) FileDone(phase processor.Phase, index int, result *processor.FileResult) {
	if t := r.current(); t != nil {
		t.FileDone(index)
	}
	r.send(FileCompleteMsg{Phase: phase, FileIndex: index, Result: result})
}

// LineMeter writes a carriage-return progress line, for output that is
// not an interactive terminal.
type LineMeter struct {
	w io.Writer
	phaseTracker

	out  sync.Mutex
	last int // width of the line on screen
}

// NewLineMeter returns an observer writing to w
func NewLineMeter(w io.Writer) *LineMeter {
	return &LineMeter{w: w}
}

func (l *LineMeter) PhaseStart(phase processor.Phase, paths []string) {
	l.start(paths)

	l.out.Lock()
	defer l.out.Unlock()
	l.clear()
	if phase == processor.PhaseApply {
		fmt.Fprintln(l.w, "Applying adjustments...")
	} else {
		fmt.Fprintln(l.w, "Computing levels...")
	}
}

func (l *LineMeter) FileStart(_ processor.Phase, index int, _ string) {
	if t := l.current(); t != nil {
		t.FileStart(index)
	}
}

func (l *LineMeter) Progress(index int, _ string, fraction float64) {
	t := l.current()
	if t == nil {
		return
	}
	snap, ok := t.Update(index, fraction)
	if !ok {
		return
	}

	l.out.Lock()
	defer l.out.Unlock()
	line := snap.Line()
	pad := max(0, l.last-len(line))
	fmt.Fprint(l.w, "\r"+line+strings.Repeat(" ", pad))
	l.last = len(line)
}

func (l *LineMeter) FileDone(_ processor.Phase, index int, _ *processor.FileResult) {
	if t := l.current(); t != nil {
		t.FileDone(index)
	}

	l.out.Lock()
	defer l.out.Unlock()
	l.clear()
}

// clear blanks the meter line; l.out must be held.
func (l *LineMeter) clear() {
	if l.last == 0 {
		return
	}
	fmt.Fprint(l.w, "\r"+strings.Repeat(" ", l.last)+"\r")
	l.last = 0
}
