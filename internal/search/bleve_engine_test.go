package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psodhi/vidyasetu/internal/storage"
)

func newEngine(t *testing.T) (Searcher, *storage.Store) {
	t.Helper()
	dir := t.TempDir()

	store := storage.New(filepath.Join(dir, "test.db"), time.Second)
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveLesson(&storage.Lesson{
		ID: "1", Title: "Alphabet Basics", Description: "Letters and sounds",
		Language: "en", LessonType: "video",
	}))
	require.NoError(t, store.SaveLesson(&storage.Lesson{
		ID: "2", Title: "Basic Hindi Grammar", Description: "Sentence structure",
		Language: "hi", LessonType: "text",
	}))

	engine, err := NewBleveEngine(store, filepath.Join(dir, "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return engine, store
}

func TestBleveEngine_SearchByTitle(t *testing.T) {
	engine, _ := newEngine(t)

	results, err := engine.Search("grammar", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "2", results[0].Lesson.ID)
	assert.Equal(t, "hi", results[0].Lesson.Language)
}

func TestBleveEngine_ShortQueryReturnsNothing(t *testing.T) {
	engine, _ := newEngine(t)

	results, err := engine.Search("g", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveEngine_DownloadedContentBecomesSearchable(t *testing.T) {
	engine, store := newEngine(t)

	results, err := engine.Search("vowels", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, store.SaveCachedLesson(&storage.CachedLesson{
		ID: "1", Content: "Today we learn the vowels a e i o u", CachedAt: time.Now(),
	}))
	engine.(UpdateListener).OnLessonDownloaded("1")

	results, err = engine.Search("vowels", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].Lesson.ID)
}

func TestBleveEngine_OnCatalogUpdated(t *testing.T) {
	engine, store := newEngine(t)

	lesson := &storage.Lesson{
		ID: "3", Title: "Counting in Punjabi", Language: "pa", LessonType: "video",
	}
	require.NoError(t, store.SaveLesson(lesson))
	engine.(UpdateListener).OnCatalogUpdated([]*storage.Lesson{lesson})

	results, err := engine.Search("counting", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "3", results[0].Lesson.ID)
}

func TestBleveEngine_DocCount(t *testing.T) {
	engine, _ := newEngine(t)

	count, err := engine.(DebugStatser).DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
