package output

import (
	"fmt"
	"strings"
)

// Rating scale bounds rendered by ScoreBar.
const (
	scaleMin = 1.0
	scaleMax = 5.0
)

// ScoreBar renders a visual bar for a 1-5 competency score.
// Example: "████████░░ 4.20"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	frac := (score - scaleMin) / (scaleMax - scaleMin)
	filled := int(frac*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s", ScoreStyle(score).Render(bar), StyleMuted.Render(fmt.Sprintf("%.2f", score)))
}

// ScoreStyle picks the style for a 1-5 score: strength, neutral or development area.
func ScoreStyle(score float64) Style {
	switch {
	case score >= 4.0:
		return StyleSuccess
	case score >= 3.0:
		return StyleWarning
	default:
		return StyleError
	}
}

// ConfidenceBadge renders a confidence label with its value, colored by level.
// Example: "high (0.86)"
func ConfidenceBadge(level string, value float64) string {
	text := fmt.Sprintf("%s (%.2f)", level, value)
	switch level {
	case "high":
		return StyleSuccess.Render(text)
	case "medium":
		return StyleWarning.Render(text)
	default:
		return StyleError.Render(text)
	}
}

// Percent renders a 0-1 fraction as a whole percentage.
func Percent(frac float64) string {
	return fmt.Sprintf("%.0f%%", frac*100)
}

// TrendArrow returns a styled trend indicator for a delta value.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
// The improved parameter indicates whether higher values are better.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := (isPositive && higherIsBetter) || (!isPositive && !higherIsBetter)

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.2f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.2f", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
