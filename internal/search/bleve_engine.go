package search

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/psodhi/vidyasetu/internal/storage"
)

// bleveEngine indexes lesson metadata plus any downloaded lesson content, so
// search keeps working across en/hi/pa lessons while fully offline.
type bleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes the
// current catalog.
func NewBleveEngine(store *storage.Store, indexPath string) (Searcher, error) {
	if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
		// continue; Open/Create below will still error and be returned
		_ = mkErr
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	be := &bleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = standard.Name
	keyword.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("language", keyword)
	dm.AddFieldMappingsAt("lesson_type", keyword)
	dm.AddFieldMappingsAt("content_url", keyword)

	im.DefaultMapping = dm
	return im
}

func docID(lessonID string) string {
	return "lesson:" + lessonID
}

func (b *bleveEngine) lessonDoc(lesson *storage.Lesson) map[string]any {
	doc := map[string]any{
		"lesson_id":   lesson.ID,
		"title":       lesson.Title,
		"description": lesson.Description,
		"language":    lesson.Language,
		"lesson_type": lesson.LessonType,
		"content_url": lesson.ContentURL,
	}
	if cached, found, err := b.store.GetCachedLesson(lesson.ID); err == nil && found {
		doc["content"] = cached.Content
	}
	return doc
}

func (b *bleveEngine) reindexAll() error {
	lessons, err := b.store.GetAllLessons()
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, lesson := range lessons {
		_ = batch.Index(docID(lesson.ID), b.lessonDoc(lesson))
	}
	return b.idx.Batch(batch)
}

func (b *bleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(strings.ToLower(tok))
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)

		qd := bleve.NewMatchQuery(tok)
		qd.SetField("description")
		qd.SetBoost(2.0)
		qs = append(qs, qd)

		qc := bleve.NewMatchQuery(tok)
		qc.SetField("content")
		qc.SetBoost(1.0)
		qs = append(qs, qc)

		ql := bleve.NewMatchQuery(tok)
		ql.SetField("language")
		ql.SetBoost(0.5)
		qs = append(qs, ql)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	q := bleve.NewDisjunctionQuery(qs...)
	srch := bleve.NewSearchRequestOptions(q, limit, 0, false)
	srch.Fields = []string{"title", "description", "language", "lesson_type", "content_url"}
	res, err := b.idx.Search(srch)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		lesson := &storage.Lesson{ID: strings.TrimPrefix(h.ID, "lesson:")}
		if t, ok := h.Fields["title"].(string); ok {
			lesson.Title = t
		}
		if d, ok := h.Fields["description"].(string); ok {
			lesson.Description = d
		}
		if l, ok := h.Fields["language"].(string); ok {
			lesson.Language = l
		}
		if lt, ok := h.Fields["lesson_type"].(string); ok {
			lesson.LessonType = lt
		}
		if u, ok := h.Fields["content_url"].(string); ok {
			lesson.ContentURL = u
		}
		out = append(out, &Result{Lesson: lesson, Score: h.Score})
	}
	return out, nil
}

// OnCatalogUpdated indexes freshly synced catalog entries.
func (b *bleveEngine) OnCatalogUpdated(lessons []*storage.Lesson) {
	batch := b.idx.NewBatch()
	for _, lesson := range lessons {
		_ = batch.Index(docID(lesson.ID), b.lessonDoc(lesson))
	}
	_ = b.idx.Batch(batch)
}

// OnLessonDownloaded re-indexes one lesson so its offline content becomes
// searchable.
func (b *bleveEngine) OnLessonDownloaded(lessonID string) {
	lessons, err := b.store.GetAllLessons()
	if err != nil {
		return
	}
	for _, lesson := range lessons {
		if lesson.ID == lessonID {
			_ = b.idx.Index(docID(lesson.ID), b.lessonDoc(lesson))
			return
		}
	}
}

func (b *bleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *bleveEngine) Close() error {
	return b.idx.Close()
}

func tokenize(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
