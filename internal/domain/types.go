package domain

import "time"

// PhotoObservation is a captured photo with its inferred label.
// Records are immutable after save; a correction is a delete plus re-create.
type PhotoObservation struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
	ImageName  string    `json:"image_name,omitempty"`
	ImageData  []byte    `json:"-"`
}

// MoodObservation is a logged mood with an optional note and a derived
// sentiment score in [-1, 1].
type MoodObservation struct {
	ID         string    `json:"id"`
	Mood       Mood      `json:"mood"`
	Note       string    `json:"note,omitempty"`
	Sentiment  float64   `json:"sentiment"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Mood is one point on the fixed five-point mood scale.
type Mood string

const (
	MoodGreat   Mood = "great"
	MoodGood    Mood = "good"
	MoodNeutral Mood = "neutral"
	MoodAnxious Mood = "anxious"
	MoodSad     Mood = "sad"
)

// Moods lists the scale from best to worst, in display order.
var Moods = []Mood{MoodGreat, MoodGood, MoodNeutral, MoodAnxious, MoodSad}

// Valid reports whether m is one of the five scale points.
func (m Mood) Valid() bool {
	switch m {
	case MoodGreat, MoodGood, MoodNeutral, MoodAnxious, MoodSad:
		return true
	}
	return false
}

// Emoji returns the display glyph for the mood.
func (m Mood) Emoji() string {
	switch m {
	case MoodGreat:
		return "😄"
	case MoodGood:
		return "🙂"
	case MoodNeutral:
		return "😐"
	case MoodAnxious:
		return "😟"
	case MoodSad:
		return "😢"
	}
	return "❓"
}
