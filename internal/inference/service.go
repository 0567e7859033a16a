// Package inference turns raw capture input into bounded scores: an image
// becomes a label plus a confidence in [0, 1], text becomes a sentiment in
// [-1, 1]. The underlying capabilities are callback-based; the service
// bridges each call into a single awaitable result with exactly-once
// delivery.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/calens/senselog/internal/domain"
)

// Classification is the result of a successful image classification.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Service wraps the injected capabilities. Concurrent calls are independent;
// each owns its own result channel.
type Service struct {
	classifier ImageClassifier
	scorer     SentimentScorer
	log        *zap.SugaredLogger
}

// New creates a Service. Either capability may be nil: a nil classifier makes
// ClassifyImage fail with ErrModelUnavailable, a nil scorer makes
// ScoreSentiment degrade to neutral.
func New(classifier ImageClassifier, scorer SentimentScorer, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{classifier: classifier, scorer: scorer, log: log}
}

// ClassifyImage decodes data and returns the top candidate's label and
// clamped confidence. Failures are typed: ErrInvalidInput for undecodable
// data, ErrModelUnavailable when no classifier is configured,
// ErrProcessingFailed when the capability reports an error, ErrNoResult when
// it returns no usable candidate.
//
// Cancellation is cooperative: if ctx ends first the caller gets ctx.Err()
// and the eventual capability result is discarded.
func (s *Service) ClassifyImage(ctx context.Context, data []byte) (Classification, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Classification{}, fmt.Errorf("%w: decode image: %v", ErrInvalidInput, err)
	}
	if s.classifier == nil {
		return Classification{}, ErrModelUnavailable
	}

	type outcome struct {
		candidates []Candidate
		err        error
	}
	// Buffered so an abandoned call never blocks the capability's callback.
	ch := make(chan outcome, 1)
	var once sync.Once

	s.classifier.Classify(Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height},
		func(candidates []Candidate, err error) {
			delivered := false
			once.Do(func() {
				delivered = true
				ch <- outcome{candidates: candidates, err: err}
			})
			if !delivered {
				s.log.Warnw("duplicate classifier completion dropped")
			}
		})

	select {
	case o := <-ch:
		if o.err != nil {
			return Classification{}, fmt.Errorf("%w: %v", ErrProcessingFailed, o.err)
		}
		if len(o.candidates) == 0 {
			return Classification{}, ErrNoResult
		}
		top := o.candidates[0]
		if strings.TrimSpace(top.Label) == "" {
			return Classification{}, ErrNoResult
		}
		return Classification{
			Label:      top.Label,
			Confidence: domain.ClampConfidence(top.Confidence),
		}, nil
	case <-ctx.Done():
		return Classification{}, ctx.Err()
	}
}

// ScoreSentiment scores text in [-1, 1]. Empty or whitespace-only text is
// neutral without invoking the scorer. Scoring is advisory: an unconfigured
// scorer or an unparsable result degrades to 0.0 rather than failing.
func (s *Service) ScoreSentiment(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	if s.scorer == nil {
		return 0, nil
	}

	type outcome struct {
		score float64
		ok    bool
	}
	ch := make(chan outcome, 1)
	var once sync.Once

	s.scorer.Score(text, func(score float64, ok bool) {
		delivered := false
		once.Do(func() {
			delivered = true
			ch <- outcome{score: score, ok: ok}
		})
		if !delivered {
			s.log.Warnw("duplicate scorer completion dropped")
		}
	})

	select {
	case o := <-ch:
		if !o.ok {
			return 0, nil
		}
		return domain.ClampSentiment(o.score), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
