package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/stocklens/newsrag/pkg/domain/model"
)

type keyMaterial struct {
	Text         string          `json:"q"`
	Holdings     []model.Holding `json:"h,omitempty"`
	Sectors      []string        `json:"s,omitempty"`
	From         string          `json:"f,omitempty"`
	To           string          `json:"t,omitempty"`
	MinRelevance float64         `json:"m"`
	TopK         int             `json:"k"`
}

// Key derives the cache key of a normalized query. Holdings and sectors are order-insensitive.
func Key(q model.Query) string {
	m := keyMaterial{
		Text:         strings.Join(strings.Fields(q.Text), " "),
		MinRelevance: q.Relevance(),
		TopK:         q.TopK,
	}

	if q.Portfolio != nil {
		m.Holdings = append([]model.Holding(nil), q.Portfolio.Holdings...)
		sort.Slice(m.Holdings, func(i, j int) bool {
			return m.Holdings[i].Symbol < m.Holdings[j].Symbol
		})
		m.Sectors = append([]string(nil), q.Portfolio.Sectors...)
		sort.Strings(m.Sectors)
	}

	f := q.Filter()
	m.From, m.To = f.PublishedFrom, f.PublishedTo

	raw, _ := json.Marshal(m)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
