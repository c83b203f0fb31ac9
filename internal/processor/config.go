package processor

import (
	"math"

	"github.com/charmbracelet/log"
	"github.com/linuxmatters/normalize/internal/audio"
)

const (
	// Epsilon is the power below which a signal is treated as silent.
	Epsilon = 1e-11

	// ClipWarnThreshold is the default fraction of clipped samples that
	// triggers a warning (0.1%).
	ClipWarnThreshold = 0.001

	// SkipThresholdDB is the smallest adjustment worth applying. Anything
	// within +/-0.25 dB is inaudible, so normalizing twice changes nothing.
	SkipThresholdDB = 0.25

	// DefaultTarget is the default RMS target amplitude (about -12 dBFS).
	DefaultTarget = 0.25

	// smoothingCapacity is the number of 10ms power windows averaged, about
	// one second of audio.
	smoothingCapacity = 100
)

// Mode selects how per-file gains are derived from the measured levels.
type Mode int

const (
	// ModeSingle normalizes every file to the target independently.
	ModeSingle Mode = iota
	// ModeBatch applies one gain, from the average level, to every file.
	ModeBatch
	// ModeMix normalizes every file to the average level of the batch.
	ModeMix
)

func (m Mode) String() string {
	switch m {
	case ModeBatch:
		return "batch"
	case ModeMix:
		return "mix"
	default:
		return "single"
	}
}

// Config holds the settings of one normalization run
type Config struct {
	// Target RMS amplitude as a fraction of full scale
	Target float64

	Mode Mode

	// Peak normalizes each file's largest sample to full scale instead of
	// using its RMS level. Single mode only.
	Peak bool

	// Compression saturates loud samples with tanh instead of clipping them
	Compression bool

	// Threshold in dB for rejecting outlier levels in batch and mix modes.
	// Negative means twice the standard deviation of the levels.
	Threshold float64

	// Gain, when GainSet, is applied as-is to every file without measuring
	// levels. GainDB is the same value in decibels when it was given that way.
	Gain    float64
	GainDB  float64
	GainSet bool

	// PrintOnly measures and reports without touching any file
	PrintOnly bool

	// ClipWarnThreshold is the clipped-sample fraction that triggers a warning
	ClipWarnThreshold float64

	// Jobs bounds the number of files analysed concurrently
	Jobs int

	// StreamFormat describes raw samples read from stdin
	StreamFormat audio.Format

	// BackupSuffix, when set, keeps each original renamed with this suffix
	BackupSuffix string

	// Logger receives diagnostics; nil discards them
	Logger *log.Logger
}

// DefaultConfig returns the default run configuration
func DefaultConfig() *Config {
	return &Config{
		Target:            DefaultTarget,
		Mode:              ModeSingle,
		Threshold:         -1,
		Gain:              1.0,
		ClipWarnThreshold: ClipWarnThreshold,
		Jobs:              1,
		StreamFormat:      audio.DefaultStreamFormat(),
	}
}

func (c *Config) logger() *log.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// DbToLinear converts decibels to a linear amplitude factor
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDb converts a linear amplitude factor to decibels
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return -120.0 // Effectively silence
	}
	return 20 * math.Log10(linear)
}
