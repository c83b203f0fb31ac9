package processor

import (
	"gonum.org/v1/gonum/floats"
)

// smoothingWindow is a fixed-capacity ring of per-window power values.
// Once full, each push replaces the oldest value.
type smoothingWindow struct {
	buf   []float64
	start int
	n     int
}

func newSmoothingWindow(capacity int) *smoothingWindow {
	return &smoothingWindow{buf: make([]float64, capacity)}
}

func (w *smoothingWindow) push(v float64) {
	end := (w.start + w.n) % len(w.buf)
	w.buf[end] = v
	if w.n == len(w.buf) {
		w.start = (w.start + 1) % len(w.buf)
	} else {
		w.n++
	}
}

func (w *smoothingWindow) full() bool {
	return w.n == len(w.buf)
}

// mean averages the values held. Until the window first fills, the values
// sit at the front of the buffer.
func (w *smoothingWindow) mean() float64 {
	if w.n == 0 {
		return 0
	}
	return floats.Sum(w.buf[:w.n]) / float64(w.n)
}
