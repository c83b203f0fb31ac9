package processor

import (
	"fmt"
	"io"
	"math"

	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/riff"
)

// InvalidLevel marks a signal that cannot be normalized (silent or unreadable)
const InvalidLevel = -1.0

// SignalInfo holds the measurements of one analysed signal
type SignalInfo struct {
	Level     float64 // smoothed RMS level, 0.0 to 1.0, or InvalidLevel
	Peak      float64 // largest sample magnitude, 0.0 to 1.0
	MinSample int64
	MaxSample int64
	Frames    int64
	Format    audio.Format
}

// Valid reports whether the signal has usable power
func (s *SignalInfo) Valid() bool {
	return s != nil && s.Level >= 0
}

// AnalyzeFile measures the level and peak of a WAV file.
// If progress is not nil, it is called with the file name as label.
func AnalyzeFile(path string, progress ProgressFunc, opts ...riff.Option) (*SignalInfo, error) {
	c, err := riff.OpenFile(path, riff.ReadOnly, opts...)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return AnalyzeContainer(c, path, progress)
}

// AnalyzeContainer measures the level and peak of the WAV data in c.
func AnalyzeContainer(c *riff.Container, label string, progress ProgressFunc) (*SignalInfo, error) {
	reader, err := audio.NewReader(c)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	frames := reader.Samples() / int64(reader.Format().Channels)
	return analyze(reader.SampleReader, frames, newProgressGate(progress, label))
}

// AnalyzeStream measures raw interleaved samples read from r. The stream
// carries no framing, so its format must be supplied. No progress is
// reported since the length is unknown.
func AnalyzeStream(r io.Reader, format audio.Format) (*SignalInfo, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return analyze(audio.NewSampleReader(r, format), -1, nil)
}

// analyze splits the signal into 10ms windows and pushes each window's
// per-channel power into a one second smoothing window. The level is the
// loudest smoothed power seen on any channel.
func analyze(src *audio.SampleReader, totalFrames int64, gate *progressGate) (*SignalInfo, error) {
	format := src.Format()
	channels := int(format.Channels)
	windowSize := int(format.SampleRate / 100)
	if windowSize == 0 {
		return nil, &audio.UnsupportedFormatError{
			Tag:    format.FormatTag,
			Bits:   format.BitsPerSample,
			Reason: fmt.Sprintf("sample rate %d Hz is too low", format.SampleRate),
		}
	}

	sampleMin, sampleMax := format.FullScale()
	info := &SignalInfo{
		Format:    format,
		MinSample: sampleMax,
		MaxSample: sampleMin,
	}

	smooth := make([]*smoothingWindow, channels)
	for c := range smooth {
		smooth[c] = newSmoothingWindow(smoothingCapacity)
	}
	sums := make([]float64, channels)
	buf := make([]int64, windowSize*channels)

	var maxPower float64
	var framesDone int64

	for {
		n, err := src.ReadFrames(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read samples: %w", err)
		}

		clear(sums)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				sample := buf[i*channels+c]
				sums[c] += float64(sample) * float64(sample)
				if sample > info.MaxSample {
					info.MaxSample = sample
				}
				if sample < info.MinSample {
					info.MinSample = sample
				}
			}
		}

		for c, w := range smooth {
			w.push(sums[c] / float64(n))
			if w.full() {
				if p := w.mean(); p > maxPower {
					maxPower = p
				}
			}
		}

		framesDone += int64(n)
		if span := totalFrames - int64(windowSize); span > 0 {
			gate.update(float64(framesDone-int64(windowSize)) / float64(span))
		}
	}
	gate.done()

	// Too short to fill the smoothing window, or silent: fall back to
	// whatever was collected.
	if maxPower < Epsilon {
		for _, w := range smooth {
			if p := w.mean(); p > maxPower {
				maxPower = p
			}
		}
	}

	info.Frames = framesDone
	if framesDone == 0 {
		info.MinSample, info.MaxSample = 0, 0
	}
	if -info.MinSample > info.MaxSample {
		info.Peak = float64(info.MinSample) / float64(sampleMin)
	} else {
		info.Peak = float64(info.MaxSample) / float64(sampleMax)
	}

	power := maxPower / (float64(sampleMin) * float64(sampleMin))
	if power < Epsilon {
		info.Level = InvalidLevel
		return info, nil
	}
	info.Level = math.Sqrt(power)

	return info, nil
}
