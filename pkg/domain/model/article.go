package model

import (
	"strings"
	"time"
)

// PublishedAtLayout is the fixed-width layout of every published_at value. Date range filters
// compare these strings lexicographically, so the width must never change.
const PublishedAtLayout = "2006-01-02 15:04"

// DateLayout is the layout of date range bounds in queries
const DateLayout = "2006-01-02"

// KST is the fixed +09:00 zone every published_at value is written in. Korea observes no
// daylight saving time.
var KST = time.FixedZone("KST", 9*60*60)

// Article is one raw news item returned by a news source
type Article struct {
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
}

// PublishedTime parses PublishedAt as KST wall clock. The zero time is returned for malformed
// values.
func (a *Article) PublishedTime() time.Time {
	t, err := time.ParseInLocation(PublishedAtLayout, a.PublishedAt, KST)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NormalizeTitle case-folds s and collapses whitespace runs into single spaces
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FormatPublishedAt renders t in the fixed-width published_at layout, converted to KST so that
// stamps and cutoffs from any zone compare correctly as strings.
func FormatPublishedAt(t time.Time) string {
	return t.In(KST).Format(PublishedAtLayout)
}

// Chunk is a contiguous piece of an article body. Offset and End are rune positions into the
// normalized body the chunk was cut from.
type Chunk struct {
	Index  int
	Offset int
	End    int
	Text   string

	// Parent article metadata
	Title       string
	PublishedAt string
	URL         string
}
