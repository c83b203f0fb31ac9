// Package progress turns per-file completion fractions into batch progress
// and time estimates.
package progress

import (
	"os"
	"sync"
	"time"
)

// wavHeaderSize is subtracted from file sizes to approximate the sample data
const wavHeaderSize = 36

// SizeTable returns the approximate sample data size of each file in KiB.
// Files that cannot be stat'd, such as stdin, count as zero.
func SizeTable(paths []string) []int64 {
	sizes := make([]int64, len(paths))
	for i, p := range paths {
		st, err := os.Stat(p)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		sizes[i] = max(0, (st.Size()-wavHeaderSize)/1024)
	}
	return sizes
}

type fileState struct {
	index    int
	fraction float64
	start    time.Time
}

// Tracker follows the files of one phase. Several files may be in flight at
// once; it is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	labels []string
	sizes  []int64
	total  int64

	finished  int64 // KiB of files done
	doneFiles int
	inFlight  map[int]*fileState
	start     time.Time

	now func() time.Time
}

// NewTracker tracks the given files with sizes from SizeTable.
func NewTracker(labels []string, sizes []int64) *Tracker {
	t := &Tracker{
		labels:   labels,
		sizes:    sizes,
		inFlight: make(map[int]*fileState),
		now:      time.Now,
	}
	for _, s := range sizes {
		t.total += s
	}
	t.start = t.now()
	return t
}

// FileStart marks file index as started.
func (t *Tracker) FileStart(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.labels) {
		return
	}
	t.inFlight[index] = &fileState{index: index, start: t.now()}
}

// Update records the completed fraction of file index and returns the
// resulting snapshot. Files that have not started are ignored.
func (t *Tracker) Update(index int, fraction float64) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.inFlight[index]
	if !ok {
		return Snapshot{}, false
	}
	st.fraction = min(1, max(0, fraction))
	return t.snapshot(st), true
}

// FileDone marks file index as finished, successfully or not.
func (t *Tracker) FileDone(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.labels) {
		return
	}
	delete(t.inFlight, index)
	t.finished += t.sizes[index]
	t.doneFiles++
}

// Batch returns the fraction of the whole phase completed.
func (t *Tracker) Batch() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batchFraction()
}

func (t *Tracker) batchFraction() float64 {
	if len(t.labels) == 0 {
		return 1
	}
	// with no sizes known, every file weighs the same
	if t.total == 0 {
		done := float64(t.doneFiles)
		for _, st := range t.inFlight {
			done += st.fraction
		}
		return done / float64(len(t.labels))
	}

	done := float64(t.finished)
	for _, st := range t.inFlight {
		done += st.fraction * float64(t.sizes[st.index])
	}
	return min(1, done/float64(t.total))
}

func (t *Tracker) snapshot(st *fileState) Snapshot {
	now := t.now()
	batch := t.batchFraction()
	return Snapshot{
		Label:    t.labels[st.index],
		Index:    st.index,
		File:     st.fraction,
		FileETA:  eta(now.Sub(st.start), st.fraction),
		Batch:    batch,
		BatchETA: eta(now.Sub(t.start), batch),
	}
}

// eta extrapolates the time left from the time spent and fraction done.
func eta(spent time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return -1
	}
	left := float64(spent)/fraction - float64(spent)
	return time.Duration(left).Round(time.Second)
}
