package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	arm, header, label, value, selected, muted lipgloss.Style
	good, warn, bad                            lipgloss.Style
	panel                                      lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		arm:      lipgloss.NewStyle().Foreground(t.Arm).Padding(1, 2),
		header:   lipgloss.NewStyle().Foreground(t.Header).Bold(true).MarginBottom(1),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		selected: lipgloss.NewStyle().Foreground(t.Select).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(t.Muted),
		good:     lipgloss.NewStyle().Foreground(t.Good),
		warn:     lipgloss.NewStyle().Foreground(t.Warn),
		bad:      lipgloss.NewStyle().Foreground(t.Bad),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2),
	}
}

var sparkRunes = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values scaled between their min and max.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparkRunes)-1))
		idx = max(0, min(len(sparkRunes)-1, idx))
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

// LimitBar marks where q sits inside [lower, upper]. Unbounded joints wrap
// q into one turn.
func LimitBar(q, lower, upper float64, width int) string {
	if width < 3 {
		return ""
	}
	if math.IsInf(lower, 0) || math.IsInf(upper, 0) || upper <= lower {
		lower, upper = -math.Pi, math.Pi
		q = math.Remainder(q, 2*math.Pi)
	}
	ratio := (q - lower) / (upper - lower)
	ratio = math.Max(0, math.Min(1, ratio))
	inner := width - 2
	pos := int(math.Round(ratio * float64(inner-1)))
	return "[" + strings.Repeat("-", pos) + "|" + strings.Repeat("-", inner-1-pos) + "]"
}

// nearLimit reports whether q is within margin of a finite bound, as a
// fraction of the range.
func nearLimit(q, lower, upper, margin float64) bool {
	if math.IsInf(lower, 0) || math.IsInf(upper, 0) || upper <= lower {
		return false
	}
	band := margin * (upper - lower)
	return q-lower < band || upper-q < band
}
