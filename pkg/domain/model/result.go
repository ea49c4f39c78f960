package model

import (
	"sort"
	"strings"
)

// RankedResult is one retrieval hit with a relevance score in [0, 1]
type RankedResult struct {
	RecordID    RecordID
	Title       string
	Text        string
	PublishedAt string
	URL         string
	Relevance   float64
}

// SortRanked orders results by relevance descending, then by more recent published_at, then by
// record id so the order is fully deterministic.
func SortRanked(results []*RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.PublishedAt != b.PublishedAt {
			return a.PublishedAt > b.PublishedAt
		}
		return a.RecordID < b.RecordID
	})
}

// Mentions reports whether title or text contains name, ignoring case
func (r *RankedResult) Mentions(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	needle := strings.ToLower(name)
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Text), needle)
}
