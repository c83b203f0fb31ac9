package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/normalize/internal/processor"
)

// ReportSuffix is appended to the input's base name to name its report
const ReportSuffix = "-normalize.log"

// ReportData is everything a per-file report shows
type ReportData struct {
	Result    *processor.FileResult
	Mode      processor.Mode
	Target    float64
	PrintOnly bool
	StartTime time.Time
	EndTime   time.Time
}

// ReportPath returns where the report for the input at path is written:
// take.wav gives take-normalize.log in the same directory.
func ReportPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ReportSuffix
}

// GenerateReport writes the report for one file next to it
func GenerateReport(data ReportData) error {
	if data.Result == nil || data.Result.IsStdin() {
		return nil
	}

	f, err := os.Create(ReportPath(data.Result.Path))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	return f.Close()
}

// WriteReport renders the report to w
func WriteReport(w io.Writer, data ReportData) {
	r := data.Result

	fmt.Fprintln(w, "Normalize Report")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(r.Path))
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if r.Info != nil {
		format := r.Info.Format
		if format.SampleRate > 0 {
			secs := float64(r.Info.Frames) / float64(format.SampleRate)
			fmt.Fprintf(w, "Duration: %s\n", formatDuration(time.Duration(secs*float64(time.Second))))
		}
		fmt.Fprintf(w, "Format: %d Hz, %d-bit, %s\n", format.SampleRate, format.BitsPerSample, channelName(int(format.Channels)))
	}
	fmt.Fprintf(w, "Time taken: %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	fmt.Fprintln(w)

	writeSection(w, "Measurements")
	table := &MetricTable{Headers: []string{"dBFS", "Fraction"}}
	if r.Info.Valid() {
		table.AddRow("RMS level", "", formatAmplitude(r.Info.Level, 2), fmt.Sprintf("%.6f", r.Info.Level))
		table.AddRow("Peak", "", formatAmplitude(r.Info.Peak, 2), fmt.Sprintf("%.6f", r.Info.Peak))
	} else {
		table.AddRow("RMS level", "", "", "")
		table.AddRow("Peak", "", "", "")
	}
	table.AddRow("Target", "", formatAmplitude(data.Target, 2), fmt.Sprintf("%.6f", data.Target))
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)

	writeSection(w, "Adjustment")
	fmt.Fprintf(w, "Mode: %s\n", data.Mode)
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "Result: failed (%v)\n", r.Err)
	case data.PrintOnly:
		fmt.Fprintf(w, "Gain: %s dB (not applied)\n", formatSigned(r.GainDB(), 2))
	case r.Skipped:
		fmt.Fprintf(w, "Gain: %s dB (already normalized)\n", formatSigned(r.GainDB(), 2))
	case r.Applied != nil:
		a := r.Applied
		fmt.Fprintf(w, "Gain: %s dB (x%.4f, %s)\n", formatSigned(r.GainDB(), 2), a.Gain, a.Mode)
		fmt.Fprintf(w, "Samples: %d\n", a.Samples)
		fmt.Fprintf(w, "Clipped: %d (%.4f%%)\n", a.Clipped, a.Loss*100)
	}
}

// writeSection writes title with a dashed underline of the same length
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
