package logging

import (
	"fmt"
	"math"
	"strings"
)

// MissingValue stands in for measurements that are not available
const MissingValue = "-"

// SilenceFloor is the level in dBFS below which a value is shown as silence
const SilenceFloor = -120.0

// MetricRow is one labelled row of pre-formatted values
type MetricRow struct {
	Label  string
	Values []string
	Unit   string
}

// MetricTable lines up labelled rows under column headers
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// AddRow appends a row
func (t *MetricTable) AddRow(label, unit string, values ...string) {
	t.Rows = append(t.Rows, MetricRow{Label: label, Values: values, Unit: unit})
}

// String renders labels left-aligned and values right-aligned, with the
// unit after the last column.
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth := 0
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
	}
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, v := range row.Values {
			if i < len(widths) {
				widths[i] = max(widths[i], len(v))
			}
		}
	}

	var sb strings.Builder
	line := func(label string, cells []string, unit string) {
		fmt.Fprintf(&sb, "%-*s", labelWidth, label)
		for i, w := range widths {
			v := MissingValue
			if i < len(cells) && cells[i] != "" {
				v = cells[i]
			}
			fmt.Fprintf(&sb, "  %*s", w, v)
		}
		if unit != "" {
			sb.WriteString(" " + unit)
		}
		sb.WriteString("\n")
	}

	line("", t.Headers, "")
	for _, row := range t.Rows {
		line(row.Label, row.Values, row.Unit)
	}
	return strings.TrimRight(sb.String(), " ")
}

// formatDB formats a decibel value, showing anything at the floor as silence.
func formatDB(db float64, decimals int) string {
	switch {
	case math.IsNaN(db) || math.IsInf(db, 1):
		return MissingValue
	case math.IsInf(db, -1) || db <= SilenceFloor:
		return fmt.Sprintf("< %.0f", SilenceFloor)
	}
	return fmt.Sprintf("%.*f", decimals, db)
}

// formatAmplitude formats a linear amplitude in dBFS.
func formatAmplitude(v float64, decimals int) string {
	if v <= 0 {
		return formatDB(math.Inf(-1), decimals)
	}
	return formatDB(20*math.Log10(v), decimals)
}

// formatSigned formats a change with an explicit sign.
func formatSigned(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, v)
}
