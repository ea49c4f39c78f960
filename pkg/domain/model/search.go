package model

import "time"

// SearchResult is the outcome of one query: the ranked results and the insight report built
// from them. Sentiments in Report line up with Results.
type SearchResult struct {
	Query        Query
	Results      []*RankedResult
	Report       *InsightReport
	TotalMatches int
	Elapsed      time.Duration
	Cached       bool
}

// SentimentOf returns the classified sentiment of the i-th result
func (r *SearchResult) SentimentOf(i int) string {
	if r.Report == nil || i >= len(r.Report.Sentiments) {
		return ""
	}
	return r.Report.Sentiments[i].String()
}
