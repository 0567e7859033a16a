package inference

import "errors"

// Classification failures surfaced to callers. Sentiment scoring never
// surfaces an error; it degrades to neutral instead.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrProcessingFailed = errors.New("processing failed")
	ErrNoResult         = errors.New("no result")
)
