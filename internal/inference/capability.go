package inference

// Image is a decoded classifier input.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Candidate is one label proposed by the classifier, best first.
type Candidate struct {
	Label      string
	Confidence float64
}

// ImageClassifier is the opaque labeling capability. Classify must invoke
// done exactly once, asynchronously, from its own goroutine. Invoking it
// twice is a programming error in the capability; the service drops and logs
// every signal after the first.
type ImageClassifier interface {
	Classify(img Image, done func(candidates []Candidate, err error))
}

// SentimentScorer is the opaque paragraph-level sentiment capability.
// Score must invoke done exactly once, asynchronously. ok is false when the
// scorer produced no parsable value for the text.
type SentimentScorer interface {
	Score(text string, done func(score float64, ok bool))
}
