package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMoodStoreSaveAndList(t *testing.T) {
	db := openTestDB(t)
	moods := db.Moods()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, mood := range []string{"happy", "tired", "angry"} {
		err := moods.Save(ctx, domain.MoodEntry{
			Mood:      mood,
			Intensity: i + 1,
			Note:      "note " + mood,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	entries, err := moods.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "angry", entries[0].Mood)
	assert.Equal(t, 3, entries[0].Intensity)
	assert.Equal(t, "note angry", entries[0].Note)
	assert.Equal(t, "happy", entries[2].Mood)
	assert.NotEmpty(t, entries[0].ID)
}

func TestMoodStoreListLimit(t *testing.T) {
	db := openTestDB(t)
	moods := db.Moods()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, moods.Save(ctx, domain.MoodEntry{
			Mood:      "happy",
			Intensity: 1,
			CreatedAt: time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	entries, err := moods.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPeriodStoreRecentStartsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	periods := db.Periods()
	ctx := context.Background()

	for _, d := range []string{"2026-01-01", "2026-02-01", "2026-03-01"} {
		start, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		require.NoError(t, periods.Save(ctx, domain.PeriodRecord{StartDate: start}))
	}

	starts, err := periods.RecentStarts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, starts, 2)
	assert.Equal(t, "2026-03-01", starts[0].Format("2006-01-02"))
	assert.Equal(t, "2026-02-01", starts[1].Format("2006-01-02"))
}

func TestPeriodStoreSaveDefaultsStartDate(t *testing.T) {
	db := openTestDB(t)
	periods := db.Periods()
	ctx := context.Background()

	require.NoError(t, periods.Save(ctx, domain.PeriodRecord{}))

	starts, err := periods.RecentStarts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, starts, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), starts[0].Format("2006-01-02"))
}
