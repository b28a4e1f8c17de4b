package storage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Totarae/psabot/internal/model"
	"github.com/Totarae/psabot/internal/storage"
)

func resolution(id string, user int64, started time.Time) *model.Resolution {
	return &model.Resolution{
		ID:        id,
		UserID:    user,
		PageURL:   "https://psa.re/movie/some-movie/",
		Selection: "1080p",
		Accepted:  2,
		Scanned:   5,
		Started:   started,
		Duration:  3 * time.Second,
	}
}

// Тест сохранения и получения записи из памяти
func TestJournalStore_RecordAndHistory(t *testing.T) {
	store := storage.NewJournalStore("")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, resolution("a", 1, now.Add(-time.Minute))))
	require.NoError(t, store.Record(ctx, resolution("b", 2, now)))
	require.NoError(t, store.Record(ctx, resolution("c", 1, now)))

	got, err := store.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	got, err = store.History(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// Тест дозаписи и загрузки журнала из файла
func TestJournalStore_PersistsToFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "journal.json")
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	store := storage.NewJournalStore(tmpFile)
	rec := resolution("x1", 9, started)
	rec.Error = "No results found!"
	require.NoError(t, store.Record(ctx, rec))

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"page_url":"https://psa.re/movie/some-movie/"`)

	reopened := storage.NewJournalStore(tmpFile)
	got, err := reopened.History(ctx, 9, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x1", got[0].ID)
	assert.Equal(t, "No results found!", got[0].Error)
	assert.True(t, started.Equal(got[0].Started))
}

// Тест загрузки файла с битой строкой
func TestJournalStore_LoadSkipsBrokenLines(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "journal.json")
	entry := resolution("ok", 3, time.Now()).Entry()

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tmpFile, append(append([]byte("{broken\n"), data...), '\n'), 0644))

	store := storage.NewJournalStore(tmpFile)
	got, err := store.History(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestJournalStore_RejectsNil(t *testing.T) {
	store := storage.NewJournalStore("")
	assert.Error(t, store.Record(context.Background(), nil))
	assert.NoError(t, store.Ping(context.Background()))
}
