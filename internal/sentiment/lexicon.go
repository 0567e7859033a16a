// Package sentiment provides an on-device paragraph sentiment scorer backed
// by a small valence lexicon. It stands in for a trained model: scores are
// advisory and the capability reports no value at all rather than guessing
// when none of the text is covered by the lexicon.
package sentiment

import "strings"

// valence maps lexicon words to scores in [-1, 1].
var valence = map[string]float64{
	"amazing":    0.9,
	"wonderful":  0.9,
	"fantastic":  0.9,
	"excellent":  0.9,
	"love":       0.8,
	"loved":      0.8,
	"great":      0.8,
	"joy":        0.8,
	"happy":      0.7,
	"excited":    0.7,
	"grateful":   0.7,
	"proud":      0.6,
	"good":       0.5,
	"nice":       0.5,
	"calm":       0.4,
	"fine":       0.3,
	"okay":       0.1,
	"ok":         0.1,
	"meh":        -0.2,
	"tired":      -0.3,
	"bored":      -0.3,
	"annoyed":    -0.4,
	"bad":        -0.5,
	"worried":    -0.5,
	"anxious":    -0.6,
	"stressed":   -0.6,
	"angry":      -0.7,
	"sad":        -0.7,
	"hate":       -0.8,
	"hated":      -0.8,
	"awful":      -0.8,
	"terrible":   -0.9,
	"horrible":   -0.9,
	"miserable":  -0.9,
	"depressed":  -0.9,
	"devastated": -1.0,
}

// negators flip the sign of the next scored word.
var negators = map[string]bool{
	"not":      true,
	"no":       true,
	"never":    true,
	"dont":     true,
	"don't":    true,
	"didnt":    true,
	"didn't":   true,
	"isnt":     true,
	"isn't":    true,
	"wasnt":    true,
	"wasn't":   true,
	"cant":     true,
	"can't":    true,
	"couldnt":  true,
	"couldn't": true,
}

// Lexicon satisfies inference.SentimentScorer.
type Lexicon struct{}

// New creates a new Lexicon scorer.
func New() *Lexicon {
	return &Lexicon{}
}

// Score analyzes text asynchronously and invokes done exactly once with the
// mean valence of the scored words, or ok=false when nothing matched.
func (l *Lexicon) Score(text string, done func(score float64, ok bool)) {
	go func() {
		done(score(text))
	}()
}

func score(text string) (float64, bool) {
	var sum float64
	var scored int
	negate := false

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"()[]")
		if negators[word] {
			negate = true
			continue
		}
		v, found := valence[word]
		if !found {
			continue
		}
		if negate {
			v = -v
			negate = false
		}
		sum += v
		scored++
	}

	if scored == 0 {
		return 0, false
	}
	return sum / float64(scored), true
}
