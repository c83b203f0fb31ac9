package processor

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrAllRejected is returned when outlier rejection leaves no level to average.
var ErrAllRejected = errors.New("all files ignored, try using -t 100")

// BatchLevel is the outcome of averaging the levels of a batch
type BatchLevel struct {
	Level     float64 // mean of the levels kept
	Threshold float64 // rejection threshold in dB that was applied
	Outliers  []bool  // parallel to the input levels
}

// Kept returns the number of levels that were averaged
func (b *BatchLevel) Kept() int {
	n := 0
	for _, out := range b.Outliers {
		if !out {
			n++
		}
	}
	return n
}

// AverageLevels averages levels after discarding those more than threshold
// dB away from the mean. A negative threshold means twice the standard
// deviation of the dB deviations from the mean.
func AverageLevels(levels []float64, threshold float64) (*BatchLevel, error) {
	if len(levels) == 0 {
		return nil, errors.New("no levels to average")
	}

	mean := stat.Mean(levels, nil)

	// loudness is perceived logarithmically, so spread is measured in dB
	deviations := make([]float64, len(levels))
	for i, level := range levels {
		deviations[i] = 20 * math.Log10(level/mean)
	}

	if threshold < 0 {
		variance := floats.Dot(deviations, deviations) / float64(len(levels))
		stdDev := 0.0
		if variance >= Epsilon {
			stdDev = math.Sqrt(variance)
		}
		threshold = 2 * stdDev
	}

	result := &BatchLevel{
		Threshold: threshold,
		Outliers:  make([]bool, len(levels)),
	}

	kept := make([]float64, 0, len(levels))
	for i, level := range levels {
		if threshold > Epsilon && len(levels) > 1 && math.Abs(deviations[i]) > threshold {
			result.Outliers[i] = true
			continue
		}
		kept = append(kept, level)
	}
	if len(kept) == 0 {
		return result, ErrAllRejected
	}

	result.Level = stat.Mean(kept, nil)
	return result, nil
}
