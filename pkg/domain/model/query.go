package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultTopK         = 5
	MaxTopK             = 20
	DefaultMinRelevance = 0.7
)

// Holding is one position of the caller's portfolio
type Holding struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// PortfolioContext biases ranking toward the caller's holdings. It never filters results.
type PortfolioContext struct {
	Holdings   []Holding `json:"holdings"`
	Sectors    []string  `json:"sectors,omitempty"`
	TotalValue *float64  `json:"totalValue,omitempty"`
}

// HasHoldings reports whether p carries at least one holding
func (p *PortfolioContext) HasHoldings() bool {
	return p != nil && len(p.Holdings) > 0
}

// DateRange is a closed range of calendar days in DateLayout
type DateRange struct {
	Start string `json:"startDate,omitempty"`
	End   string `json:"endDate,omitempty"`
}

// Query is one retrieval request
type Query struct {
	Text         string
	Portfolio    *PortfolioContext
	DateRange    *DateRange
	MinRelevance *float64
	TopK         int
}

// Normalize validates q and returns a copy with defaults applied. top_k is clamped into
// [1, MaxTopK] with 0 meaning the default; other out-of-range values are validation errors.
func (q Query) Normalize() (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, NewValidationError("query", "query must not be empty")
	}

	switch {
	case q.TopK == 0:
		q.TopK = DefaultTopK
	case q.TopK < 1:
		q.TopK = 1
	case q.TopK > MaxTopK:
		q.TopK = MaxTopK
	}

	if q.MinRelevance == nil {
		v := DefaultMinRelevance
		q.MinRelevance = &v
	} else if *q.MinRelevance < 0 || *q.MinRelevance > 1 {
		return q, NewValidationError("filters.minRelevance", "minRelevance must be within [0, 1]",
			goerr.V("min_relevance", *q.MinRelevance))
	}

	if q.Portfolio != nil {
		for i, h := range q.Portfolio.Holdings {
			if h.Weight < 0 || h.Weight > 1 {
				return q, NewValidationError("portfolioContext.holdings.weight", "holding weight must be within [0, 1]",
					goerr.V("index", i), goerr.V("weight", h.Weight))
			}
		}
	}

	if q.DateRange != nil {
		if err := q.DateRange.validate(); err != nil {
			return q, err
		}
	}

	return q, nil
}

func (r *DateRange) validate() error {
	var start, end time.Time
	var err error
	if r.Start != "" {
		if start, err = time.Parse(DateLayout, r.Start); err != nil {
			return NewValidationError("filters.startDate", "startDate must be YYYY-MM-DD", goerr.V("start_date", r.Start))
		}
	}
	if r.End != "" {
		if end, err = time.Parse(DateLayout, r.End); err != nil {
			return NewValidationError("filters.endDate", "endDate must be YYYY-MM-DD", goerr.V("end_date", r.End))
		}
	}
	if r.Start != "" && r.End != "" && start.After(end) {
		return NewValidationError("filters.startDate", "startDate must not be after endDate",
			goerr.V("start_date", r.Start), goerr.V("end_date", r.End))
	}
	return nil
}

// Filter converts the query date range into a published_at filter covering whole days
func (q Query) Filter() SearchFilter {
	var f SearchFilter
	if q.DateRange == nil {
		return f
	}
	if q.DateRange.Start != "" {
		f.PublishedFrom = q.DateRange.Start + " 00:00"
	}
	if q.DateRange.End != "" {
		f.PublishedTo = q.DateRange.End + " 23:59"
	}
	return f
}

// Relevance returns the normalized minimum relevance
func (q Query) Relevance() float64 {
	if q.MinRelevance == nil {
		return DefaultMinRelevance
	}
	return *q.MinRelevance
}
