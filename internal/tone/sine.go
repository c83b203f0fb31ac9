// Package tone generates sine test signals as PCM WAV files.
package tone

import (
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/riff"
)

// Signal describes a test signal. Amplitudes are RMS values as fractions of
// full scale, so a Signal with Amplitude 0.25 measures at a level of 0.25.
type Signal struct {
	Amplitude float64
	Frequency float64

	// Hum mixes in a second sine, such as mains hum. Zero disables it.
	HumAmplitude float64
	HumFrequency float64
}

// Validate checks the signal can be rendered in format.
func (s Signal) Validate(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if format.SampleRate == 0 {
		return errors.New("sample rate must be positive")
	}
	if s.Amplitude < 0 || s.HumAmplitude < 0 {
		return errors.New("amplitude must not be negative")
	}
	nyquist := float64(format.SampleRate) / 2
	if s.Frequency >= nyquist || (s.HumAmplitude > 0 && s.HumFrequency >= nyquist) {
		return fmt.Errorf("frequency must be below %.0f Hz", nyquist)
	}
	return nil
}

// at returns sample i as a fraction of full scale, clamped to [-1, 1].
func (s Signal) at(i int, rate float64) float64 {
	// peak of a sine is its RMS amplitude over sqrt(2)/2
	v := math.Sin(2*math.Pi*s.Frequency*float64(i)/rate) * s.Amplitude / (math.Sqrt2 / 2)
	if s.HumAmplitude > 0 {
		v += math.Sin(2*math.Pi*s.HumFrequency*float64(i)/rate) * s.HumAmplitude / (math.Sqrt2 / 2)
	}
	return max(-1, min(1, v))
}

// Render returns frames of interleaved sample bytes, every channel carrying
// the same signal.
func (s Signal) Render(format audio.Format, frames int) []byte {
	width := format.BytesPerSample()
	channels := int(format.Channels)
	scale := float64(int64(0x7FFFFFFF) >> (8 * (4 - width)))
	rate := float64(format.SampleRate)

	data := make([]byte, frames*channels*width)
	for i := 0; i < frames; i++ {
		// truncate towards zero
		sample := int64(s.at(i, rate) * scale)
		for c := 0; c < channels; c++ {
			audio.EncodeSample(data[(i*channels+c)*width:], width, sample)
		}
	}
	return data
}

// Write renders the signal into a new WAVE list on c.
func (s Signal) Write(c *riff.Container, format audio.Format, frames int) error {
	if err := s.Validate(format); err != nil {
		return err
	}
	return audio.WriteWAV(c, format, s.Render(format, frames))
}

// WriteFile creates path holding frames of the signal.
func (s Signal) WriteFile(path string, format audio.Format, frames int) error {
	c, err := riff.OpenFile(path, riff.WriteOnly)
	if err != nil {
		return err
	}
	if err := s.Write(c, format, frames); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}
