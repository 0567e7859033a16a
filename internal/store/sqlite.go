package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/calens/senselog/internal/domain"
)

//go:embed schema.sql
var schema string

// Store persists observation records in a local SQLite database.
//
// Access follows a two-lane contract: every mutation runs alone on the write
// lane (one immediate transaction at a time, later calls queue behind it),
// while reads run concurrently on the connection pool and only ever observe
// committed state. Saved records cross from the write lane to callers by
// identifier: after commit the row is re-resolved through a read query, never
// handed over from inside the transaction.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePhoto validates and persists a photo observation. A missing ID or
// timestamp is assigned; the confidence is clamped to [0, 1]. The insert is
// atomic: on failure nothing is visible and ErrSaveFailed is returned.
// The returned record is re-resolved on the read lane after commit.
func (s *Store) SavePhoto(ctx context.Context, p domain.PhotoObservation) (*domain.PhotoObservation, error) {
	if strings.TrimSpace(p.Label) == "" {
		return nil, fmt.Errorf("%w: label is required", ErrSaveFailed)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now()
	}
	p.Confidence = domain.ClampConfidence(p.Confidence)

	err := s.mutate(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO photo_observations (id, label, confidence, captured_at, image_name, image_data)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Label, p.Confidence, p.CapturedAt, p.ImageName, p.ImageData,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: insert photo: %v", ErrSaveFailed, err)
	}

	return s.GetPhoto(ctx, p.ID)
}

// SaveMood validates and persists a mood observation. The mood tag must be one
// of the five scale points; the sentiment is clamped to [-1, 1].
func (s *Store) SaveMood(ctx context.Context, m domain.MoodObservation) (*domain.MoodObservation, error) {
	if !m.Mood.Valid() {
		return nil, fmt.Errorf("%w: unknown mood tag %q", ErrSaveFailed, m.Mood)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	m.Sentiment = domain.ClampSentiment(m.Sentiment)

	err := s.mutate(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mood_observations (id, mood, note, sentiment, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`,
			m.ID, string(m.Mood), m.Note, m.Sentiment, m.RecordedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: insert mood: %v", ErrSaveFailed, err)
	}

	return s.GetMood(ctx, m.ID)
}

// GetPhoto resolves a photo observation by ID on the read lane.
func (s *Store) GetPhoto(ctx context.Context, id string) (*domain.PhotoObservation, error) {
	var p domain.PhotoObservation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, confidence, captured_at, image_name, image_data
		 FROM photo_observations WHERE id = ?`, id,
	).Scan(&p.ID, &p.Label, &p.Confidence, &p.CapturedAt, &p.ImageName, &p.ImageData)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: photo %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get photo: %v", ErrFetchFailed, err)
	}
	return &p, nil
}

// GetMood resolves a mood observation by ID on the read lane.
func (s *Store) GetMood(ctx context.Context, id string) (*domain.MoodObservation, error) {
	var m domain.MoodObservation
	var mood string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mood, note, sentiment, recorded_at
		 FROM mood_observations WHERE id = ?`, id,
	).Scan(&m.ID, &mood, &m.Note, &m.Sentiment, &m.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: mood %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get mood: %v", ErrFetchFailed, err)
	}
	m.Mood = domain.Mood(mood)
	return &m, nil
}

// ListPhotos returns all photo observations, newest first. No rows is an
// empty slice, not an error.
func (s *Store) ListPhotos(ctx context.Context) ([]domain.PhotoObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, confidence, captured_at, image_name, image_data
		 FROM photo_observations ORDER BY captured_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list photos: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	photos := []domain.PhotoObservation{}
	for rows.Next() {
		var p domain.PhotoObservation
		if err := rows.Scan(&p.ID, &p.Label, &p.Confidence, &p.CapturedAt, &p.ImageName, &p.ImageData); err != nil {
			return nil, fmt.Errorf("%w: scan photo: %v", ErrFetchFailed, err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list photos: %v", ErrFetchFailed, err)
	}
	return photos, nil
}

// ListMoods returns all mood observations, newest first.
func (s *Store) ListMoods(ctx context.Context) ([]domain.MoodObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mood, note, sentiment, recorded_at
		 FROM mood_observations ORDER BY recorded_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list moods: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	moods := []domain.MoodObservation{}
	for rows.Next() {
		var m domain.MoodObservation
		var mood string
		if err := rows.Scan(&m.ID, &mood, &m.Note, &m.Sentiment, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("%w: scan mood: %v", ErrFetchFailed, err)
		}
		m.Mood = domain.Mood(mood)
		moods = append(moods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list moods: %v", ErrFetchFailed, err)
	}
	return moods, nil
}

// DeletePhoto removes exactly one photo observation.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	return s.deleteOne(ctx, "photo_observations", id)
}

// DeleteMood removes exactly one mood observation.
func (s *Store) DeleteMood(ctx context.Context, id string) error {
	return s.deleteOne(ctx, "mood_observations", id)
}

// ClearPhotos deletes every photo observation, all or nothing.
func (s *Store) ClearPhotos(ctx context.Context) error {
	return s.clearAll(ctx, "photo_observations")
}

// ClearMoods deletes every mood observation, all or nothing.
func (s *Store) ClearMoods(ctx context.Context) error {
	return s.clearAll(ctx, "mood_observations")
}

func (s *Store) deleteOne(ctx context.Context, table, id string) error {
	var affected int64
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: delete from %s: %v", ErrDeleteFailed, table, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) clearAll(ctx context.Context, table string) error {
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrClearFailed, table, err)
	}
	return nil
}

// mutate runs work inside one transaction on the write lane. At most one
// mutation is in flight at a time; any failure rolls the transaction back so
// no partial change is ever observable.
func (s *Store) mutate(ctx context.Context, work func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := work(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
