package output

import (
	"strings"
	"testing"
)

func TestScoreBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		score  float64
		filled int
		label  string
	}{
		{1, 0, "1.00"},
		{3, 5, "3.00"},
		{5, 10, "5.00"},
		{0, 0, "0.00"},
		{7, 10, "7.00"},
	}
	for _, tt := range tests {
		got := ScoreBar(tt.score, 10)
		if n := strings.Count(got, "█"); n != tt.filled {
			t.Errorf("ScoreBar(%v) filled = %d, want %d", tt.score, n, tt.filled)
		}
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 10 {
			t.Errorf("ScoreBar(%v) width = %d, want 10", tt.score, n)
		}
		if !strings.HasSuffix(got, tt.label) {
			t.Errorf("ScoreBar(%v) = %q, want suffix %q", tt.score, got, tt.label)
		}
	}
}

func TestConfidenceBadge(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := ConfidenceBadge("high", 0.856); got != "high (0.86)" {
		t.Errorf("ConfidenceBadge = %q", got)
	}
	if got := ConfidenceBadge("low", 0.2); got != "low (0.20)" {
		t.Errorf("ConfidenceBadge = %q", got)
	}
}

func TestTrendArrow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := TrendArrow(0.25, true); got != "▲ +0.25" {
		t.Errorf("TrendArrow(+) = %q", got)
	}
	if got := TrendArrow(-0.5, true); got != "▼ -0.50" {
		t.Errorf("TrendArrow(-) = %q", got)
	}
	if got := TrendArrow(0, true); got != "─" {
		t.Errorf("TrendArrow(0) = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(2.0 / 3.0); got != "67%" {
		t.Errorf("Percent = %q, want 67%%", got)
	}
}

func TestAutoColor_Flag(t *testing.T) {
	defer SetNoColor(false)
	noColor = false
	AutoColor(true, true)
	if !IsNoColor() {
		t.Error("expected --no-color to disable color")
	}
}
