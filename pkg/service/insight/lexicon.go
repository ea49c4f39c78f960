package insight

import (
	"strings"

	"github.com/stocklens/newsrag/pkg/domain/types"
)

var (
	positiveWords = []string{"상승", "증가", "성장", "호재", "급등", "돌파", "성공"}
	negativeWords = []string{"하락", "감소", "위험", "악재", "급락", "실패", "우려"}
)

// lexiconSentiment classifies text by counting market keywords. It is the fallback when the
// classification service cannot be used.
func lexiconSentiment(text string) types.Sentiment {
	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}

	switch {
	case pos > neg:
		return types.SentimentPositive
	case neg > pos:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}
