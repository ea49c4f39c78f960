package insight

import (
	"encoding/json"
	"strings"

	"github.com/stocklens/newsrag/pkg/domain/model"
)

const maxListItems = 10

// Fields is the validated narrative part of an insight report
type Fields struct {
	KeyTopics     []string
	RiskFactors   []string
	Opportunities []string
	Instruments   []model.Instrument
}

// Outcome is the result of parsing model output: either Parsed or Malformed
type Outcome interface {
	outcome()
}

// Parsed carries fields that passed validation
type Parsed struct {
	Fields Fields
}

// Malformed carries the raw output that could not be used
type Malformed struct {
	Raw    string
	Reason string
}

func (Parsed) outcome()    {}
func (Malformed) outcome() {}

type rawInstrument struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Reason     string   `json:"reason"`
	Confidence *float64 `json:"confidence"`
}

type rawFields struct {
	KeyTopics         *[]string        `json:"keyTopics"`
	RiskFactors       *[]string        `json:"riskFactors"`
	Opportunities     *[]string        `json:"opportunities"`
	RecommendedStocks *[]rawInstrument `json:"recommendedStocks"`
}

// stripCodeFence removes a surrounding ``` or ```json fence
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseNarrative validates raw model output. All four lists must be present; entries are
// trimmed, blank entries and instruments without a symbol are dropped, lists are capped and
// confidence is clamped into [0, 1].
func ParseNarrative(raw string) Outcome {
	var rf rawFields
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &rf); err != nil {
		return Malformed{Raw: raw, Reason: err.Error()}
	}
	if rf.KeyTopics == nil || rf.RiskFactors == nil || rf.Opportunities == nil || rf.RecommendedStocks == nil {
		return Malformed{Raw: raw, Reason: "required field is missing"}
	}

	fields := Fields{
		KeyTopics:     cleanList(*rf.KeyTopics),
		RiskFactors:   cleanList(*rf.RiskFactors),
		Opportunities: cleanList(*rf.Opportunities),
		Instruments:   []model.Instrument{},
	}
	for _, ri := range *rf.RecommendedStocks {
		symbol := strings.TrimSpace(ri.Symbol)
		if symbol == "" {
			continue
		}
		confidence := 0.0
		if ri.Confidence != nil {
			confidence = min(max(*ri.Confidence, 0), 1)
		}
		fields.Instruments = append(fields.Instruments, model.Instrument{
			Symbol:     symbol,
			Name:       strings.TrimSpace(ri.Name),
			Reason:     strings.TrimSpace(ri.Reason),
			Confidence: confidence,
		})
		if len(fields.Instruments) == maxListItems {
			break
		}
	}

	return Parsed{Fields: fields}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}
