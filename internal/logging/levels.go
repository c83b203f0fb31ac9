package logging

import (
	"fmt"
	"io"

	"github.com/linuxmatters/normalize/internal/processor"
)

// LevelHeader is the column header for WriteLevels output. In batch mode
// there is no per-file gain column.
func LevelHeader(batch bool) string {
	if batch {
		return "  level        peak"
	}
	return "  level        peak         gain"
}

// WriteLevels lists what a print-only run measured: one line per file with
// level, peak and (outside batch mode) gain, then the batch average and the
// batch adjustment where they apply. Values are dBFS unless fractions is set.
func WriteLevels(w io.Writer, s *processor.Summary, fractions bool) {
	batch := s.Mode == processor.ModeBatch

	for _, r := range s.Files {
		if !r.Info.Valid() {
			continue
		}
		fmt.Fprintf(w, "%-12s ", amplitudeCell(r.Info.Level, fractions))
		fmt.Fprintf(w, "%-12s ", amplitudeCell(r.Info.Peak, fractions))
		if !batch {
			fmt.Fprintf(w, "%-10s ", gainCell(r.Gain, fractions, "%0.6f", "%0.4fdB"))
		}
		fmt.Fprintf(w, "%s\n", r.Path)
	}

	if s.Batch != nil {
		if fractions {
			fmt.Fprintf(w, "%-12.6f average level\n", s.AverageLevel)
		} else {
			fmt.Fprintf(w, "%-8.4fdBFS average level\n", processor.LinearToDb(s.AverageLevel))
		}
	}

	if batch {
		fmt.Fprintf(w, "%-12s volume adjustment\n", gainCell(s.Gain, fractions, "%f", "%fdB"))
	}
}

func amplitudeCell(v float64, fractions bool) string {
	if fractions {
		return fmt.Sprintf("%0.6f", v)
	}
	return fmt.Sprintf("%0.4fdBFS", processor.LinearToDb(v))
}

func gainCell(gain float64, fractions bool, fracFormat, dbFormat string) string {
	if fractions {
		return fmt.Sprintf(fracFormat, gain)
	}
	return fmt.Sprintf(dbFormat, processor.LinearToDb(gain))
}
