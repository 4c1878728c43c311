package engine

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func bands() []domain.StateBand {
	return []domain.StateBand{
		{Name: "NORMAL", Threshold: 0},
		{Name: "ELEVATED_RISK", Threshold: 35},
		{Name: "CRITICAL_ZONE", Threshold: 60},
	}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{-5, "NORMAL"}, // nothing matches, default applies
		{0, "NORMAL"},
		{34.9, "NORMAL"},
		{35, "ELEVATED_RISK"},
		{59.9, "ELEVATED_RISK"},
		{60, "CRITICAL_ZONE"},
		{61, "CRITICAL_ZONE"},
		{1000, "CRITICAL_ZONE"},
	}
	for _, tc := range cases {
		if got := Classify(bands(), tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestClassifyNoBands(t *testing.T) {
	if got := Classify(nil, 100); got != domain.StateDefault {
		t.Errorf("Classify with no bands = %q, want %q", got, domain.StateDefault)
	}
}

func TestClassifyCriticalOverridesHigherThreshold(t *testing.T) {
	// A non-special state can carry a higher threshold; the critical
	// severity name still wins once matched.
	b := append(bands(), domain.StateBand{Name: "WATCHLIST", Threshold: 61})
	if got := Classify(b, 61); got != "CRITICAL_ZONE" {
		t.Errorf("Classify(61) = %q, want CRITICAL_ZONE", got)
	}
}

func TestClassifyElevatedOverridesWhenNoCritical(t *testing.T) {
	b := []domain.StateBand{
		{Name: "NORMAL", Threshold: 0},
		{Name: "WATCHLIST", Threshold: 40},
		{Name: "ELEVATED_RISK", Threshold: 35},
	}
	if got := Classify(b, 45); got != "ELEVATED_RISK" {
		t.Errorf("Classify(45) = %q, want ELEVATED_RISK", got)
	}
}

func TestClassifyHighestThresholdWithoutOverrides(t *testing.T) {
	b := []domain.StateBand{
		{Name: "NORMAL", Threshold: 0},
		{Name: "WATCHLIST", Threshold: 20},
		{Name: "REVIEW", Threshold: 40},
	}
	if got := Classify(b, 50); got != "REVIEW" {
		t.Errorf("Classify(50) = %q, want REVIEW", got)
	}
}

func TestClassifyExplicitSeverityRank(t *testing.T) {
	// A configured rank beats the built-in name-based ranking.
	b := []domain.StateBand{
		{Name: "NORMAL", Threshold: 0},
		{Name: "CRITICAL_ZONE", Threshold: 40},
		{Name: "MELTDOWN", Threshold: 30, SeverityRank: 5},
	}
	if got := Classify(b, 50); got != "MELTDOWN" {
		t.Errorf("Classify(50) = %q, want MELTDOWN", got)
	}
}

func TestClassifyDeterministicTieBreak(t *testing.T) {
	b := []domain.StateBand{
		{Name: "BETA", Threshold: 10},
		{Name: "ALPHA", Threshold: 10},
	}
	for i := 0; i < 5; i++ {
		if got := Classify(b, 20); got != "ALPHA" {
			t.Fatalf("Classify tie = %q, want ALPHA", got)
		}
	}
}
