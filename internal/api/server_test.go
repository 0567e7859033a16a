package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calens/senselog/internal/inference"
	"github.com/calens/senselog/internal/store"
)

type fixedClassifier struct {
	candidates []inference.Candidate
}

func (f fixedClassifier) Classify(img inference.Image, done func([]inference.Candidate, error)) {
	go func() { done(f.candidates, nil) }()
}

type fixedScorer struct {
	score float64
}

func (f fixedScorer) Score(text string, done func(float64, bool)) {
	go func() { done(f.score, true) }()
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	inf := inference.New(
		fixedClassifier{candidates: []inference.Candidate{{Label: "tabby-cat", Confidence: 0.88}}},
		fixedScorer{score: 0.65},
		nil,
	)

	ts := httptest.NewServer(New(s, inf, "", nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func testImageBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != "ok" {
		t.Errorf(`health status = %v, want "ok"`, body["status"])
	}
}

func TestAddPhoto(t *testing.T) {
	ts := setupServer(t)

	resp := postJSON(t, ts.URL+"/photos",
		`{"image_base64": "`+testImageBase64(t)+`", "image_name": "cat.png"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /photos status = %d, want 201", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["label"] != "tabby-cat" {
		t.Errorf("label = %v, want tabby-cat", body["label"])
	}
	if body["confidence_bucket"] != "High" {
		t.Errorf("confidence_bucket = %v, want High", body["confidence_bucket"])
	}
	if body["id"] == "" {
		t.Error("id is empty")
	}
}

func TestAddPhoto_InvalidImage(t *testing.T) {
	ts := setupServer(t)

	resp := postJSON(t, ts.URL+"/photos", `{"image_base64": "bm90IGFuIGltYWdl"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /photos (garbage image) status = %d, want 400", resp.StatusCode)
	}
}

func TestAddMood_FallbackSentiment(t *testing.T) {
	ts := setupServer(t)

	resp := postJSON(t, ts.URL+"/moods", `{"mood": "good"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /moods status = %d, want 201", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["sentiment"] != 0.4 {
		t.Errorf("sentiment = %v, want fallback 0.4", body["sentiment"])
	}
}

func TestAddMood_NoteScored(t *testing.T) {
	ts := setupServer(t)

	resp := postJSON(t, ts.URL+"/moods", `{"mood": "good", "note": "long walk by the river"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /moods status = %d, want 201", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["sentiment"] != 0.65 {
		t.Errorf("sentiment = %v, want scored 0.65", body["sentiment"])
	}
	if body["sentiment_label"] != "Very Positive" {
		t.Errorf("sentiment_label = %v, want Very Positive", body["sentiment_label"])
	}
}

func TestAddMood_UnknownTag(t *testing.T) {
	ts := setupServer(t)

	resp := postJSON(t, ts.URL+"/moods", `{"mood": "ecstatic"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /moods (unknown tag) status = %d, want 400", resp.StatusCode)
	}
}

func TestGetPhoto_NotFound(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/photos/missing-id")
	if err != nil {
		t.Fatalf("GET /photos/missing-id: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing photo status = %d, want 404", resp.StatusCode)
	}
}

func TestMoodStats(t *testing.T) {
	ts := setupServer(t)

	for _, body := range []string{
		`{"mood": "good"}`,
		`{"mood": "good"}`,
		`{"mood": "sad"}`,
	} {
		resp := postJSON(t, ts.URL+"/moods", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("POST /moods status = %d, want 201", resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/stats/moods")
	if err != nil {
		t.Fatalf("GET /stats/moods: %v", err)
	}
	stats := decodeBody(t, resp)

	if stats["total"] != float64(3) {
		t.Errorf("total = %v, want 3", stats["total"])
	}
	if stats["logged_today"] != float64(3) {
		t.Errorf("logged_today = %v, want 3", stats["logged_today"])
	}
	if stats["most_common_mood"] != "good" {
		t.Errorf("most_common_mood = %v, want good", stats["most_common_mood"])
	}

	dist, ok := stats["distribution"].(map[string]interface{})
	if !ok {
		t.Fatalf("distribution has unexpected shape: %T", stats["distribution"])
	}
	good, ok := dist["good"].(map[string]interface{})
	if !ok {
		t.Fatalf("distribution[good] has unexpected shape: %T", dist["good"])
	}
	if good["count"] != float64(2) {
		t.Errorf("distribution[good].count = %v, want 2", good["count"])
	}
}
