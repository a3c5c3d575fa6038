package catalog

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/psodhi/vidyasetu/internal/storage"
)

// Feed conventions: each item is one lesson. Categories carry the lesson
// type (video, pdf, text) and content language (en, hi, pa); the enclosure or
// link points at the lesson content.
var (
	knownTypes     = map[string]bool{"video": true, "pdf": true, "text": true}
	knownLanguages = map[string]bool{"en": true, "hi": true, "pa": true}
)

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

func (p *Parser) Parse(reader io.Reader) ([]*storage.Lesson, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog feed: %w", err)
	}

	lessons := make([]*storage.Lesson, 0, len(feed.Items))
	for _, item := range feed.Items {
		lesson := &storage.Lesson{
			ID:          lessonID(item),
			Title:       item.Title,
			Description: item.Description,
			LessonType:  "text",
			Language:    "en",
			ContentURL:  contentURL(item),
		}

		for _, category := range item.Categories {
			c := strings.ToLower(strings.TrimSpace(category))
			if knownTypes[c] {
				lesson.LessonType = c
			}
			if knownLanguages[c] {
				lesson.Language = c
			}
		}

		if item.UpdatedParsed != nil {
			lesson.UpdatedAt = *item.UpdatedParsed
		} else if item.PublishedParsed != nil {
			lesson.UpdatedAt = *item.PublishedParsed
		}

		lessons = append(lessons, lesson)
	}

	return lessons, nil
}

func lessonID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(item.Link)))[:16]
}

func contentURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure.URL != "" {
			return enclosure.URL
		}
	}
	return item.Link
}
