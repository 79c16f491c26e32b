package domain

import (
	"context"
	"time"
)

// MoodEntry is a recorded mood with intensity 1..3 and an optional note.
type MoodEntry struct {
	ID        string
	Mood      string
	Intensity int
	Note      string
	CreatedAt time.Time
}

// Moods is the fixed set of accepted mood values.
var Moods = []string{"happy", "blissful", "tired", "annoyed", "angry", "depressed"}

// StickerCategories is the fixed set of sticker categories.
var StickerCategories = []string{"happy", "love", "sad", "angry", "tired"}

// PeriodRecord marks the start of one cycle.
type PeriodRecord struct {
	ID        string
	StartDate time.Time
	CreatedAt time.Time
}

// MoodStore persists mood entries.
type MoodStore interface {
	Save(ctx context.Context, entry MoodEntry) error
	List(ctx context.Context, limit int) ([]MoodEntry, error)
}

// PeriodStore persists cycle-start records.
type PeriodStore interface {
	Save(ctx context.Context, rec PeriodRecord) error
	// RecentStarts returns up to limit start dates, newest first.
	RecentStarts(ctx context.Context, limit int) ([]time.Time, error)
}
