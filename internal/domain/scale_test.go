package domain

import (
	"math"
	"testing"
)

func TestConfidenceLabel_Boundaries(t *testing.T) {
	tests := []struct {
		confidence float64
		want       ConfidenceBucket
	}{
		{1.0, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79999, ConfidenceMedium},
		{0.5, ConfidenceMedium},
		{0.49999, ConfidenceLow},
		{0.0, ConfidenceLow},
	}

	for _, tt := range tests {
		if got := ConfidenceLabel(tt.confidence); got != tt.want {
			t.Errorf("ConfidenceLabel(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, "Very Positive"},
		{0.6, "Very Positive"},
		{0.59, "Positive"},
		{0.3, "Positive"},
		{0.29, "Neutral"},
		{-0.3, "Neutral"},
		{-0.31, "Negative"},
		{-0.6, "Negative"},
		{-0.61, "Very Negative"},
		{-1.0, "Very Negative"},
	}

	for _, tt := range tests {
		if got := SentimentLabel(tt.score); got != tt.want {
			t.Errorf("SentimentLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.3, 0.3},
		{-0.2, 0},
		{1.7, 1},
		{math.NaN(), 0.5},
	}

	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampSentiment(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.4, 0.4},
		{-2, -1},
		{2, 1},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := ClampSentiment(tt.in); got != tt.want {
			t.Errorf("ClampSentiment(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFallbackSentiment(t *testing.T) {
	tests := []struct {
		mood Mood
		want float64
	}{
		{MoodGreat, 0.8},
		{MoodGood, 0.4},
		{MoodNeutral, 0.0},
		{MoodAnxious, -0.4},
		{MoodSad, -0.8},
		{Mood("confused"), 0.0},
	}

	for _, tt := range tests {
		if got := FallbackSentiment(tt.mood); got != tt.want {
			t.Errorf("FallbackSentiment(%q) = %v, want %v", tt.mood, got, tt.want)
		}
	}
}

func TestMoodValid(t *testing.T) {
	for _, m := range Moods {
		if !m.Valid() {
			t.Errorf("Valid() = false for scale mood %q", m)
		}
	}
	if Mood("ecstatic").Valid() {
		t.Error("Valid() = true for mood outside the scale")
	}
}

func TestFormatConfidence(t *testing.T) {
	if got := FormatConfidence(0.934); got != "93.4%" {
		t.Errorf("FormatConfidence(0.934) = %q, want %q", got, "93.4%")
	}
	if got := FormatConfidence(1); got != "100.0%" {
		t.Errorf("FormatConfidence(1) = %q, want %q", got, "100.0%")
	}
}
