// Package tui renders boiler history in the terminal: a colored sparkline
// for one-shot output and a bubbletea model for the live watch view.
package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/export"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	colorCold   = lipgloss.Color("196")
	colorBand   = lipgloss.Color("220")
	colorNormal = lipgloss.Color("78")
	colorDim    = lipgloss.Color("240")
)

// TempColor picks red below the trigger, yellow inside the hysteresis band
// and green above the reset threshold.
func TempColor(v float64, t domain.Thresholds) lipgloss.Color {
	switch {
	case v < t.TriggerC:
		return colorCold
	case v <= t.ResetC:
		return colorBand
	default:
		return colorNormal
	}
}

// Sparkline renders the newest width values, scaled to their own min/max.
// Shorter series are left-padded with a dim baseline.
func Sparkline(values []float64, width int, t domain.Thresholds) string {
	if width <= 0 {
		return ""
	}

	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(colorDim)
	sb.WriteString(dim.Render(strings.Repeat("╌", width-len(values))))

	for _, v := range values {
		idx := min(int((v-lo)/span*float64(len(sparkBlocks)-1)), len(sparkBlocks)-1)
		style := lipgloss.NewStyle().Foreground(TempColor(v, t))

		if v < t.TriggerC {
			style = style.Bold(true)
		}

		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// Values extracts temperatures from history rows, skipping malformed ones.
func Values(rows []string) []float64 {
	samples, _ := export.ParseRows(rows)

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.TempC
	}

	return values
}

// Summary returns min, max and last of values; ok is false when empty.
func Summary(values []float64) (lo, hi, last float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, 0, false
	}

	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	return lo, hi, values[len(values)-1], true
}
