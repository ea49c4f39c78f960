package http

import (
	"math"

	"github.com/stocklens/newsrag/pkg/domain/model"
)

const summaryLength = 500

// SearchResponse is the JSON body returned for a query
type SearchResponse struct {
	Query        string         `json:"query"`
	NewsArticles []NewsArticle  `json:"newsArticles"`
	Analysis     Analysis       `json:"analysis"`
	Metadata     SearchMetadata `json:"metadata"`
}

type NewsArticle struct {
	NewsID         string  `json:"newsId"`
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	PublishedAt    string  `json:"publishedAt"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevanceScore"`
	Sentiment      string  `json:"sentiment"`
}

type Analysis struct {
	OverallSentiment      string                      `json:"overallSentiment"`
	SentimentDistribution model.SentimentDistribution `json:"sentimentDistribution"`
	KeyTopics             []string                    `json:"keyTopics"`
	RiskFactors           []string                    `json:"riskFactors"`
	Opportunities         []string                    `json:"opportunities"`
	RecommendedStocks     []model.Instrument          `json:"recommendedStocks"`
	Degraded              bool                        `json:"degraded"`
	DegradedReasons       []string                    `json:"degradedReasons,omitempty"`
}

type SearchMetadata struct {
	TotalMatches  int   `json:"totalMatches"`
	ReturnedCount int   `json:"returnedCount"`
	SearchTimeMs  int64 `json:"searchTimeMs"`
	Cached        bool  `json:"cached"`
}

// NewSearchResponse renders a search result in the consumer's JSON shape
func NewSearchResponse(result *model.SearchResult) *SearchResponse {
	report := result.Report
	if report == nil {
		report = model.NewEmptyInsightReport()
	}

	resp := &SearchResponse{
		Query:        result.Query.Text,
		NewsArticles: make([]NewsArticle, len(result.Results)),
		Analysis: Analysis{
			OverallSentiment:      report.OverallSentiment.String(),
			SentimentDistribution: report.Distribution,
			KeyTopics:             nonNil(report.KeyTopics),
			RiskFactors:           nonNil(report.RiskFactors),
			Opportunities:         nonNil(report.Opportunities),
			RecommendedStocks:     report.RecommendedInstruments,
			Degraded:              report.Degraded,
			DegradedReasons:       report.DegradedReasons,
		},
		Metadata: SearchMetadata{
			TotalMatches:  result.TotalMatches,
			ReturnedCount: len(result.Results),
			SearchTimeMs:  result.Elapsed.Milliseconds(),
			Cached:        result.Cached,
		},
	}
	if resp.Analysis.RecommendedStocks == nil {
		resp.Analysis.RecommendedStocks = []model.Instrument{}
	}

	for i, r := range result.Results {
		resp.NewsArticles[i] = NewsArticle{
			NewsID:         r.RecordID.String(),
			Title:          r.Title,
			Summary:        truncate(r.Text, summaryLength),
			PublishedAt:    r.PublishedAt,
			URL:            r.URL,
			RelevanceScore: math.Round(r.Relevance*10000) / 10000,
			Sentiment:      result.SentimentOf(i),
		}
	}
	return resp
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
