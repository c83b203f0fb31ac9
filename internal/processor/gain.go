package processor

import (
	"math"

	"github.com/linuxmatters/normalize/internal/audio"
)

// GainMode is the overflow policy used while scaling samples.
type GainMode int

const (
	// GainScale only scales; used for gains of 1.0 or less, which cannot overflow.
	GainScale GainMode = iota
	// GainClip scales and hard-clips to full scale.
	GainClip
	// GainCompress saturates with tanh so the output never reaches full scale.
	GainCompress
)

func (m GainMode) String() string {
	switch m {
	case GainClip:
		return "clip"
	case GainCompress:
		return "compress"
	default:
		return "scale"
	}
}

// ChooseGainMode decides how to handle overflow. Compression is used only
// when it is enabled, the gain boosts, and the signal's extreme samples
// would leave full scale (or their extremes are unknown).
func ChooseGainMode(gain float64, compression bool, info *SignalInfo, sampleMin, sampleMax int64) GainMode {
	if gain <= 1.0 {
		return GainScale
	}
	if !compression {
		return GainClip
	}
	if info != nil {
		if float64(info.MaxSample)*gain <= float64(sampleMax) &&
			float64(info.MinSample)*gain >= float64(sampleMin) {
			return GainClip
		}
	}
	return GainCompress
}

// gainCurve maps one input sample to its output. A sample counts as
// clipped only in GainClip mode, when the rounded scaled value lies outside
// full scale. The table and direct paths share this definition.
type gainCurve struct {
	gain     float64
	mode     GainMode
	min, max int64
}

func (g gainCurve) apply(sample int64) (int64, bool) {
	v := float64(sample) * g.gain

	switch g.mode {
	case GainCompress:
		if sample < 0 {
			fmin := float64(g.min)
			v = fmin * math.Tanh(v/fmin)
		} else {
			fmax := float64(g.max)
			v = fmax * math.Tanh(v/fmax)
		}
		return g.clamp(v), false

	case GainClip:
		v = math.Round(v)
		if v > float64(g.max) {
			return g.max, true
		}
		if v < float64(g.min) {
			return g.min, true
		}
		if math.IsNaN(v) {
			return 0, false
		}
		return int64(v), false
	}

	return g.clamp(v), false
}

// clamp rounds v to the nearest sample value in range. Bounds are checked
// before converting, as values beyond int64 do not convert.
func (g gainCurve) clamp(v float64) int64 {
	v = math.Round(v)
	switch {
	case v >= float64(g.max):
		return g.max
	case v <= float64(g.min):
		return g.min
	case math.IsNaN(v):
		return 0
	}
	return int64(v)
}

// GainTable is a precomputed curve covering every sample value of a
// 1 or 2 byte format. It is indexed from zero with the most negative
// sample value as bias.
type GainTable struct {
	out  []int64
	bias int64

	// Inputs at or beyond these bounds clip. With no clipping they lie
	// outside the sample range.
	minPosClipped int64
	maxNegClipped int64
}

// NewGainTable builds the table for samples stored in width bytes.
func NewGainTable(width int, gain float64, mode GainMode) *GainTable {
	sampleMin, sampleMax := audio.FullScale(width)
	curve := gainCurve{gain: gain, mode: mode, min: sampleMin, max: sampleMax}

	t := &GainTable{
		out:           make([]int64, sampleMax-sampleMin+1),
		bias:          sampleMin,
		minPosClipped: sampleMax + 1,
		maxNegClipped: sampleMin - 1,
	}
	for s := sampleMin; s <= sampleMax; s++ {
		v, clipped := curve.apply(s)
		t.out[s-sampleMin] = v
		if !clipped {
			continue
		}
		if s > 0 && s < t.minPosClipped {
			t.minPosClipped = s
		}
		if s < 0 && s > t.maxNegClipped {
			t.maxNegClipped = s
		}
	}
	return t
}

// Lookup returns the output for sample and whether it clipped.
func (t *GainTable) Lookup(sample int64) (int64, bool) {
	return t.out[sample-t.bias], sample >= t.minPosClipped || sample <= t.maxNegClipped
}

// Len returns the number of table entries.
func (t *GainTable) Len() int { return len(t.out) }

// useTable reports whether a lookup table is built for width-byte samples.
func useTable(width int) bool {
	return width <= 2
}
