package model

import "github.com/stocklens/newsrag/pkg/domain/types"

// SentimentDistribution holds fractional sentiment counts. The three fields sum to 1.
type SentimentDistribution struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Instrument is a recommended stock with the model's stated reason
type Instrument struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// InsightReport aggregates a ranked result set
type InsightReport struct {
	OverallSentiment       types.Sentiment
	Distribution           SentimentDistribution
	Sentiments             []types.Sentiment // one per ranked result, same order
	KeyTopics              []string
	RiskFactors            []string
	Opportunities          []string
	RecommendedInstruments []Instrument
	Degraded               bool
	DegradedReasons        []string
}

// NewEmptyInsightReport returns the well-formed report for an empty result set
func NewEmptyInsightReport() *InsightReport {
	return &InsightReport{
		OverallSentiment:       types.SentimentNeutral,
		Distribution:           SentimentDistribution{Neutral: 1},
		Sentiments:             []types.Sentiment{},
		KeyTopics:              []string{},
		RiskFactors:            []string{},
		Opportunities:          []string{},
		RecommendedInstruments: []Instrument{},
	}
}

// Degrade flags the report as degraded with a reason
func (r *InsightReport) Degrade(reason string) {
	r.Degraded = true
	r.DegradedReasons = append(r.DegradedReasons, reason)
}
