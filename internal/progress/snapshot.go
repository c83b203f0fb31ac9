package progress

import (
	"fmt"
	"path/filepath"
	"time"
)

// Snapshot is the state of one file and its batch at an update.
// ETAs are negative when unknown.
type Snapshot struct {
	Label string
	Index int

	File    float64
	FileETA time.Duration

	Batch    float64
	BatchETA time.Duration
}

// prefixWidth is how much of a file name the meter shows
const prefixWidth = 17

// Line renders the snapshot as a single-line meter:
//
//	name.wav  42% done, ETA 00:00:07 (batch  10% done, ETA 00:01:02)
func (s Snapshot) Line() string {
	name := filepath.Base(s.Label)
	if len(name) > prefixWidth {
		name = name[:prefixWidth]
	}

	if s.File <= 0 {
		return fmt.Sprintf(" %s  --%% done, ETA --:--:-- (batch %3.0f%% done, ETA --:--:--)", name, s.Batch*100)
	}
	return fmt.Sprintf(" %s %3.0f%% done, ETA %s (batch %3.0f%% done, ETA %s)",
		name, s.File*100, Clock(s.FileETA), s.Batch*100, Clock(s.BatchETA))
}

// Clock formats d as hh:mm:ss, capping hours at 99.
func Clock(d time.Duration) string {
	if d < 0 {
		return "--:--:--"
	}
	secs := int64(d.Round(time.Second) / time.Second)
	h := min(secs/3600, 99)
	return fmt.Sprintf("%02d:%02d:%02d", h, secs/60%60, secs%60)
}
