package rating

import (
	"testing"
	"time"
)

func TestTimeliness(t *testing.T) {
	cfg := defaultRating().Timeliness
	tests := []struct {
		latency time.Duration
		want    float64
	}{
		{0, 100},
		{20 * time.Hour, 100},
		{24 * time.Hour, 100},
		{24*time.Hour + time.Minute, 70},
		{48 * time.Hour, 70},
		{60 * time.Hour, 40},
		{72 * time.Hour, 40},
		{80 * time.Hour, 10},
		{30 * 24 * time.Hour, 10},
	}
	for _, tt := range tests {
		if got := Timeliness(cfg, tt.latency); got != tt.want {
			t.Errorf("Timeliness(%s) = %g, want %g", tt.latency, got, tt.want)
		}
	}
}

func TestFairness(t *testing.T) {
	cfg := defaultRating().Fairness
	tests := []struct {
		name     string
		quoted   float64
		baseline float64
		want     float64
	}{
		{"at baseline", 100, 100, 100},
		{"under baseline clamps", 95, 100, 100},
		{"free quote clamps", 0, 100, 100},
		{"over by 15 percent", 115, 100, 55},
		{"over by 10 percent", 110, 100, 70},
		{"far over clamps to zero", 200, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fairness(cfg, tt.quoted, tt.baseline)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Fairness(%g, %g) = %g, want %g", tt.quoted, tt.baseline, got, tt.want)
			}
		})
	}
}

func TestTrust(t *testing.T) {
	tests := []struct {
		term, delta       float64
		wantScore, wantDt float64
	}{
		{100, 0, 100, 0},
		{100, 5, 100, 5},
		{80, 25, 90, 10},
		{80, -25, 70, -10},
		{5, -10, 0, -10},
	}
	for _, tt := range tests {
		score, delta := Trust(tt.term, tt.delta, 10)
		if score != tt.wantScore || delta != tt.wantDt {
			t.Errorf("Trust(%g, %g) = %g, %g; want %g, %g", tt.term, tt.delta, score, delta, tt.wantScore, tt.wantDt)
		}
	}
}

func TestCombine(t *testing.T) {
	w := defaultRating().Weights
	if got := Combine(w, 10, 55, 100); got != 43.75 {
		t.Errorf("Combine(10, 55, 100) = %g, want 43.75", got)
	}
	if got := Combine(w, 100, 100, 100); got != 100 {
		t.Errorf("Combine(100, 100, 100) = %g, want 100", got)
	}
	if got := Combine(w, 70, 33.333, 90); got != 61.17 {
		t.Errorf("Combine rounding = %g, want 61.17", got)
	}
}
