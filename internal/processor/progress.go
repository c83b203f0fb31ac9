package processor

import (
	"io"

	"github.com/charmbracelet/log"
)

var discardLogger = log.New(io.Discard)

// ProgressFunc receives a label and the completed fraction, 0.0 to 1.0
type ProgressFunc func(label string, fraction float64)

// progressGate forwards progress in steps of at least 1%.
type progressGate struct {
	fn    ProgressFunc
	label string
	last  float64
}

func newProgressGate(fn ProgressFunc, label string) *progressGate {
	if fn == nil {
		return nil
	}
	g := &progressGate{fn: fn, label: label}
	fn(label, 0)
	return g
}

func (g *progressGate) update(fraction float64) {
	if g == nil {
		return
	}
	if fraction >= g.last+0.01 {
		g.last = min(fraction, 1)
		g.fn(g.label, g.last)
	}
}

func (g *progressGate) done() {
	if g == nil || g.last >= 1 {
		return
	}
	g.last = 1
	g.fn(g.label, 1)
}
