package inference_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calens/senselog/internal/inference"
)

// testImage returns a decodable 1x1 PNG.
func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// fakeClassifier completes asynchronously with fixed output. With double set
// it invokes the completion a second time, which the service must drop.
type fakeClassifier struct {
	candidates []inference.Candidate
	err        error
	double     bool
	calls      atomic.Int32
	completed  chan struct{}
}

func (f *fakeClassifier) Classify(img inference.Image, done func([]inference.Candidate, error)) {
	f.calls.Add(1)
	go func() {
		done(f.candidates, f.err)
		if f.double {
			done([]inference.Candidate{{Label: "bogus", Confidence: 0.1}}, nil)
		}
		if f.completed != nil {
			close(f.completed)
		}
	}()
}

type fakeScorer struct {
	score float64
	ok    bool
	calls atomic.Int32
}

func (f *fakeScorer) Score(text string, done func(float64, bool)) {
	f.calls.Add(1)
	go func() { done(f.score, f.ok) }()
}

func TestClassifyImage_Success(t *testing.T) {
	clf := &fakeClassifier{candidates: []inference.Candidate{
		{Label: "tabby-cat", Confidence: 0.91},
		{Label: "dog", Confidence: 0.05},
	}}
	svc := inference.New(clf, nil, nil)

	got, err := svc.ClassifyImage(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("ClassifyImage() error = %v", err)
	}
	if got.Label != "tabby-cat" {
		t.Errorf("Label = %q, want %q", got.Label, "tabby-cat")
	}
	if got.Confidence != 0.91 {
		t.Errorf("Confidence = %v, want 0.91", got.Confidence)
	}
}

func TestClassifyImage_InvalidInput(t *testing.T) {
	clf := &fakeClassifier{}
	svc := inference.New(clf, nil, nil)

	_, err := svc.ClassifyImage(context.Background(), []byte("not an image"))
	if !errors.Is(err, inference.ErrInvalidInput) {
		t.Errorf("ClassifyImage(garbage) error = %v, want ErrInvalidInput", err)
	}
	if clf.calls.Load() != 0 {
		t.Error("classifier was invoked for undecodable input")
	}
}

func TestClassifyImage_ModelUnavailable(t *testing.T) {
	svc := inference.New(nil, nil, nil)

	_, err := svc.ClassifyImage(context.Background(), testImage(t))
	if !errors.Is(err, inference.ErrModelUnavailable) {
		t.Errorf("ClassifyImage() error = %v, want ErrModelUnavailable", err)
	}
}

func TestClassifyImage_ProcessingFailed(t *testing.T) {
	clf := &fakeClassifier{err: errors.New("request handler blew up")}
	svc := inference.New(clf, nil, nil)

	_, err := svc.ClassifyImage(context.Background(), testImage(t))
	if !errors.Is(err, inference.ErrProcessingFailed) {
		t.Errorf("ClassifyImage() error = %v, want ErrProcessingFailed", err)
	}
}

func TestClassifyImage_NoResult(t *testing.T) {
	tests := []struct {
		name       string
		candidates []inference.Candidate
	}{
		{"zero candidates", nil},
		{"empty top label", []inference.Candidate{{Label: "  ", Confidence: 0.9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := inference.New(&fakeClassifier{candidates: tt.candidates}, nil, nil)
			_, err := svc.ClassifyImage(context.Background(), testImage(t))
			if !errors.Is(err, inference.ErrNoResult) {
				t.Errorf("ClassifyImage() error = %v, want ErrNoResult", err)
			}
		})
	}
}

func TestClassifyImage_ClampsConfidence(t *testing.T) {
	svc := inference.New(&fakeClassifier{
		candidates: []inference.Candidate{{Label: "cat", Confidence: 1.4}},
	}, nil, nil)

	got, err := svc.ClassifyImage(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("ClassifyImage() error = %v", err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got.Confidence)
	}
}

func TestClassifyImage_DuplicateCompletionDropped(t *testing.T) {
	clf := &fakeClassifier{
		candidates: []inference.Candidate{{Label: "cat", Confidence: 0.9}},
		double:     true,
		completed:  make(chan struct{}),
	}
	svc := inference.New(clf, nil, nil)

	got, err := svc.ClassifyImage(context.Background(), testImage(t))
	if err != nil {
		t.Fatalf("ClassifyImage() error = %v", err)
	}

	// Wait for the misbehaving second invocation; the first result must win.
	select {
	case <-clf.completed:
	case <-time.After(5 * time.Second):
		t.Fatal("capability never finished its second completion")
	}
	if got.Label != "cat" {
		t.Errorf("Label = %q, want the first completion's %q", got.Label, "cat")
	}
}

func TestClassifyImage_Cancelled(t *testing.T) {
	// A capability that never completes leaves only the cancellation path.
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	svc := inference.New(blockingClassifier{block: block}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ClassifyImage(ctx, testImage(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ClassifyImage(cancelled ctx) error = %v, want context.Canceled", err)
	}
}

type blockingClassifier struct {
	block chan struct{}
}

func (b blockingClassifier) Classify(img inference.Image, done func([]inference.Candidate, error)) {
	go func() {
		<-b.block
		done(nil, nil)
	}()
}

func TestScoreSentiment_EmptyTextSkipsScorer(t *testing.T) {
	scorer := &fakeScorer{score: 0.9, ok: true}
	svc := inference.New(nil, scorer, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		got, err := svc.ScoreSentiment(context.Background(), text)
		if err != nil {
			t.Fatalf("ScoreSentiment(%q) error = %v", text, err)
		}
		if got != 0 {
			t.Errorf("ScoreSentiment(%q) = %v, want 0", text, got)
		}
	}
	if scorer.calls.Load() != 0 {
		t.Error("scorer was invoked for whitespace-only text")
	}
}

func TestScoreSentiment_ClampsScore(t *testing.T) {
	svc := inference.New(nil, &fakeScorer{score: 3.0, ok: true}, nil)

	got, err := svc.ScoreSentiment(context.Background(), "over the moon")
	if err != nil {
		t.Fatalf("ScoreSentiment() error = %v", err)
	}
	if got != 1.0 {
		t.Errorf("ScoreSentiment() = %v, want 1.0", got)
	}
}

func TestScoreSentiment_UnparsableDegradesToNeutral(t *testing.T) {
	svc := inference.New(nil, &fakeScorer{score: 0.7, ok: false}, nil)

	got, err := svc.ScoreSentiment(context.Background(), "zxqv blorp")
	if err != nil {
		t.Fatalf("ScoreSentiment() error = %v", err)
	}
	if got != 0 {
		t.Errorf("ScoreSentiment() = %v, want 0", got)
	}
}

func TestScoreSentiment_NilScorerDegradesToNeutral(t *testing.T) {
	svc := inference.New(nil, nil, nil)

	got, err := svc.ScoreSentiment(context.Background(), "still works")
	if err != nil {
		t.Fatalf("ScoreSentiment() error = %v", err)
	}
	if got != 0 {
		t.Errorf("ScoreSentiment() = %v, want 0", got)
	}
}
