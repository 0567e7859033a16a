package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/calens/senselog/internal/domain"
	"github.com/calens/senselog/internal/inference"
	"github.com/calens/senselog/internal/stats"
	"github.com/calens/senselog/internal/store"
)

// Server handles HTTP requests for the observation log API.
type Server struct {
	store     *store.Store
	inference *inference.Service
	addr      string
	log       *zap.SugaredLogger
}

// New creates a new API server.
func New(s *store.Store, inf *inference.Service, addr string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{store: s, inference: inf, addr: addr, log: log}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	s.log.Infow("starting server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Photo observations
	mux.HandleFunc("GET /photos", s.listPhotos)
	mux.HandleFunc("POST /photos", s.addPhoto)
	mux.HandleFunc("GET /photos/{id}", s.getPhoto)
	mux.HandleFunc("DELETE /photos/{id}", s.deletePhoto)
	mux.HandleFunc("DELETE /photos", s.clearPhotos)

	// Mood observations
	mux.HandleFunc("GET /moods", s.listMoods)
	mux.HandleFunc("POST /moods", s.addMood)
	mux.HandleFunc("GET /moods/{id}", s.getMood)
	mux.HandleFunc("DELETE /moods/{id}", s.deleteMood)
	mux.HandleFunc("DELETE /moods", s.clearMoods)

	// Dashboards
	mux.HandleFunc("GET /stats/photos", s.photoStats)
	mux.HandleFunc("GET /stats/moods", s.moodStats)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// withCORS adds CORS headers for frontend development.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddPhotoRequest is the request body for capturing a photo observation.
// The image is classified server-side before the record is persisted.
type AddPhotoRequest struct {
	ImageBase64 string `json:"image_base64"`
	ImageName   string `json:"image_name,omitempty"`
}

// PhotoResponse augments a stored photo with its display bucket.
type PhotoResponse struct {
	domain.PhotoObservation
	ConfidenceText   string                  `json:"confidence_text"`
	ConfidenceBucket domain.ConfidenceBucket `json:"confidence_bucket"`
}

func photoResponse(p domain.PhotoObservation) PhotoResponse {
	return PhotoResponse{
		PhotoObservation: p,
		ConfidenceText:   domain.FormatConfidence(p.Confidence),
		ConfidenceBucket: domain.ConfidenceLabel(p.Confidence),
	}
}

func (s *Server) addPhoto(w http.ResponseWriter, r *http.Request) {
	var req AddPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "image_base64 is required")
		return
	}

	result, err := s.inference.ClassifyImage(r.Context(), data)
	if err != nil {
		s.log.Warnw("classification failed", "error", err)
		writeError(w, classifyStatus(err), err.Error())
		return
	}

	photo, err := s.store.SavePhoto(r.Context(), domain.PhotoObservation{
		Label:      result.Label,
		Confidence: result.Confidence,
		ImageName:  req.ImageName,
		ImageData:  data,
	})
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, photoResponse(*photo))
}

func (s *Server) listPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.store.ListPhotos(r.Context())
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	out := make([]PhotoResponse, len(photos))
	for i, p := range photos {
		out[i] = photoResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"photos": out})
}

func (s *Server) getPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.store.GetPhoto(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, photoResponse(*photo))
}

func (s *Server) deletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePhoto(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearPhotos(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearPhotos(r.Context()); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMoodRequest is the request body for logging a mood observation. If the
// note is empty the sentiment falls back to the mood tag's fixed value.
type AddMoodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note,omitempty"`
}

// MoodResponse augments a stored mood with its display bucket.
type MoodResponse struct {
	domain.MoodObservation
	Emoji          string `json:"emoji"`
	SentimentLabel string `json:"sentiment_label"`
}

func moodResponse(m domain.MoodObservation) MoodResponse {
	return MoodResponse{
		MoodObservation: m,
		Emoji:           m.Mood.Emoji(),
		SentimentLabel:  domain.SentimentLabel(m.Sentiment),
	}
}

func (s *Server) addMood(w http.ResponseWriter, r *http.Request) {
	var req AddMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mood := domain.Mood(req.Mood)
	if !mood.Valid() {
		writeError(w, http.StatusBadRequest, "mood must be one of: great, good, neutral, anxious, sad")
		return
	}

	sentiment := domain.FallbackSentiment(mood)
	if req.Note != "" {
		// Scoring is advisory and never fails; empty notes skip it entirely.
		score, err := s.inference.ScoreSentiment(r.Context(), req.Note)
		if err == nil {
			sentiment = score
		}
	}

	saved, err := s.store.SaveMood(r.Context(), domain.MoodObservation{
		Mood:      mood,
		Note:      req.Note,
		Sentiment: sentiment,
	})
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, moodResponse(*saved))
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	moods, err := s.store.ListMoods(r.Context())
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	out := make([]MoodResponse, len(moods))
	for i, m := range moods {
		out[i] = moodResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"moods": out})
}

func (s *Server) getMood(w http.ResponseWriter, r *http.Request) {
	mood, err := s.store.GetMood(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, moodResponse(*mood))
}

func (s *Server) deleteMood(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMood(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearMoods(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearMoods(r.Context()); err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) photoStats(w http.ResponseWriter, r *http.Request) {
	photos, err := s.store.ListPhotos(r.Context())
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	now := time.Now()
	capturedAt := func(p domain.PhotoObservation) time.Time { return p.CapturedAt }
	label := func(p domain.PhotoObservation) string { return p.Label }
	confidence := func(p domain.PhotoObservation) float64 { return p.Confidence }

	resp := map[string]interface{}{
		"total":          stats.TotalCount(photos),
		"captured_today": stats.CountOnDay(photos, capturedAt, now),
		"weekly":         stats.WeeklySeries(photos, capturedAt, confidence, now),
		"distribution":   stats.Distribution(photos, label),
	}
	if common, ok := stats.MostCommon(photos, label); ok {
		resp["most_common_label"] = common
	}
	if avg, ok := stats.Average(photos, confidence); ok {
		resp["average_confidence"] = avg
		resp["average_confidence_text"] = domain.FormatConfidence(avg)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) moodStats(w http.ResponseWriter, r *http.Request) {
	moods, err := s.store.ListMoods(r.Context())
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}

	now := time.Now()
	recordedAt := func(m domain.MoodObservation) time.Time { return m.RecordedAt }
	mood := func(m domain.MoodObservation) domain.Mood { return m.Mood }
	sentiment := func(m domain.MoodObservation) float64 { return m.Sentiment }

	resp := map[string]interface{}{
		"total":        stats.TotalCount(moods),
		"logged_today": stats.CountOnDay(moods, recordedAt, now),
		"weekly":       stats.WeeklySeries(moods, recordedAt, sentiment, now),
		"distribution": stats.Distribution(moods, mood),
	}
	if common, ok := stats.MostCommon(moods, mood); ok {
		resp["most_common_mood"] = common
	}
	if avg, ok := stats.Average(moods, sentiment); ok {
		resp["average_sentiment"] = avg
		resp["average_sentiment_label"] = domain.SentimentLabel(avg)
	}

	writeJSON(w, http.StatusOK, resp)
}

// classifyStatus maps inference failures to HTTP statuses. The caller sees
// the typed description; nothing is retried server-side.
func classifyStatus(err error) int {
	switch {
	case errors.Is(err, inference.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, inference.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func storeStatus(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
