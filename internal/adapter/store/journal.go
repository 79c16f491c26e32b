package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"champ-ai/internal/domain"
)

// DB wraps the journal SQLite database shared by the mood and period
// stores. Single-writer discipline, WAL journaling.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrStorage, err)
	}

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrStorage, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS moods (
			id         TEXT PRIMARY KEY,
			mood       TEXT NOT NULL,
			intensity  INTEGER NOT NULL,
			note       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS periods (
			id         TEXT PRIMARY KEY,
			start_date TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_moods_created ON moods(created_at);
		CREATE INDEX IF NOT EXISTS idx_periods_start ON periods(start_date);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStorage, err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error { return d.db.Close() }

// Moods returns the mood store view of the database.
func (d *DB) Moods() *MoodStore { return &MoodStore{db: d.db} }

// Periods returns the period store view of the database.
func (d *DB) Periods() *PeriodStore { return &PeriodStore{db: d.db} }

// MoodStore implements domain.MoodStore.
type MoodStore struct {
	db *sql.DB
}

// Save implements domain.MoodStore.
func (s *MoodStore) Save(ctx context.Context, entry domain.MoodEntry) error {
	if entry.ID == "" {
		entry.ID = newULID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO moods (id, mood, intensity, note, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.Mood, entry.Intensity, entry.Note, entry.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: save mood: %v", domain.ErrStorage, err)
	}
	return nil
}

// List implements domain.MoodStore, newest first.
func (s *MoodStore) List(ctx context.Context, limit int) ([]domain.MoodEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mood, intensity, note, created_at FROM moods ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list moods: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var entries []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Mood, &e.Intensity, &e.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan mood: %v", domain.ErrStorage, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PeriodStore implements domain.PeriodStore.
type PeriodStore struct {
	db *sql.DB
}

// Save implements domain.PeriodStore.
func (s *PeriodStore) Save(ctx context.Context, rec domain.PeriodRecord) error {
	if rec.ID == "" {
		rec.ID = newULID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.StartDate.IsZero() {
		rec.StartDate = rec.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO periods (id, start_date, created_at) VALUES (?, ?, ?)",
		rec.ID, rec.StartDate.Format("2006-01-02"), rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: save period: %v", domain.ErrStorage, err)
	}
	return nil
}

// RecentStarts implements domain.PeriodStore, newest first.
func (s *PeriodStore) RecentStarts(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT start_date FROM periods ORDER BY start_date DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent starts: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan period: %v", domain.ErrStorage, err)
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}
		starts = append(starts, t)
	}
	return starts, rows.Err()
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}
