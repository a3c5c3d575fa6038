package catalog

import (
	"strings"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Lesson Catalog</title>
    <item>
      <title>Basic Hindi Grammar</title>
      <description>Introduction to sentence structure</description>
      <link>http://lms.example/lesson/12/</link>
      <guid>12</guid>
      <category>text</category>
      <category>hi</category>
      <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Counting Numbers</title>
      <description>Video lesson on counting</description>
      <link>http://lms.example/lesson/13/</link>
      <guid>13</guid>
      <category>video</category>
      <category>pa</category>
      <enclosure url="http://lms.example/media/counting.mp4" type="video/mp4" length="1024"/>
    </item>
    <item>
      <title>Untyped Lesson</title>
      <link>http://lms.example/lesson/14/</link>
    </item>
  </channel>
</rss>`

func TestParser_Parse(t *testing.T) {
	p := NewParser()

	lessons, err := p.Parse(strings.NewReader(sampleFeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(lessons))
	}

	hindi := lessons[0]
	if hindi.ID != "12" {
		t.Errorf("expected id from guid, got %q", hindi.ID)
	}
	if hindi.LessonType != "text" || hindi.Language != "hi" {
		t.Errorf("expected text/hi from categories, got %s/%s", hindi.LessonType, hindi.Language)
	}
	if hindi.ContentURL != "http://lms.example/lesson/12/" {
		t.Errorf("expected link as content URL, got %q", hindi.ContentURL)
	}
	if hindi.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt from pubDate")
	}

	video := lessons[1]
	if video.LessonType != "video" || video.Language != "pa" {
		t.Errorf("expected video/pa, got %s/%s", video.LessonType, video.Language)
	}
	if video.ContentURL != "http://lms.example/media/counting.mp4" {
		t.Errorf("expected enclosure to win over link, got %q", video.ContentURL)
	}

	untyped := lessons[2]
	if untyped.LessonType != "text" || untyped.Language != "en" {
		t.Errorf("expected text/en defaults, got %s/%s", untyped.LessonType, untyped.Language)
	}
	if untyped.ID == "" {
		t.Error("expected a derived id when guid is absent")
	}
}

func TestParser_ParseInvalid(t *testing.T) {
	p := NewParser()
	if _, err := p.Parse(strings.NewReader("not a feed")); err == nil {
		t.Error("expected error for invalid feed")
	}
}
