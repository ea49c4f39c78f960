package types

import (
	"fmt"
	"strings"
)

// Sentiment is the market tone of a news text
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// AllSentiments returns sentiments in tie-break precedence order
func AllSentiments() []Sentiment {
	return []Sentiment{
		SentimentPositive,
		SentimentNeutral,
		SentimentNegative,
	}
}

// IsValid checks if the sentiment is valid
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sentiment
func (s Sentiment) String() string {
	return string(s)
}

// ParseSentiment parses a label case-insensitively
func ParseSentiment(s string) (Sentiment, error) {
	sentiment := Sentiment(strings.ToUpper(strings.TrimSpace(s)))
	if !sentiment.IsValid() {
		return "", fmt.Errorf("invalid sentiment: %s", s)
	}
	return sentiment, nil
}
