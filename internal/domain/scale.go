package domain

import (
	"fmt"
	"math"
)

// This file is the single home for the score tables and thresholds shared by
// the aggregation and presentation surfaces. Don't re-declare these per call
// site; every surface that buckets a score must agree on the boundaries.

// moodSentiment is the fallback sentiment assigned when a mood entry carries
// no note to score.
var moodSentiment = map[Mood]float64{
	MoodGreat:   0.8,
	MoodGood:    0.4,
	MoodNeutral: 0.0,
	MoodAnxious: -0.4,
	MoodSad:     -0.8,
}

// FallbackSentiment returns the fixed sentiment for a mood tag.
// Unknown tags map to neutral.
func FallbackSentiment(m Mood) float64 {
	return moodSentiment[m]
}

// ConfidenceBucket is the coarse display bucket for a classification score.
type ConfidenceBucket string

const (
	ConfidenceHigh   ConfidenceBucket = "High"
	ConfidenceMedium ConfidenceBucket = "Medium"
	ConfidenceLow    ConfidenceBucket = "Low"
)

// ConfidenceLabel buckets a confidence score. Lower bounds are closed:
// 0.8 is High and 0.5 is Medium.
func ConfidenceLabel(confidence float64) ConfidenceBucket {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SentimentLabel maps a sentiment score to its display bucket.
func SentimentLabel(score float64) string {
	switch {
	case score >= 0.6:
		return "Very Positive"
	case score >= 0.3:
		return "Positive"
	case score >= -0.3:
		return "Neutral"
	case score >= -0.6:
		return "Negative"
	default:
		return "Very Negative"
	}
}

// ClampConfidence forces a score into [0, 1]. NaN becomes the midpoint 0.5,
// so an unparsable upstream value never leaks out of range.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Min(1, math.Max(0, v))
}

// ClampSentiment forces a score into [-1, 1]. NaN becomes neutral 0.
func ClampSentiment(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(-1, v))
}

// FormatConfidence renders a confidence score as a percentage, e.g. "93.4%".
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}
