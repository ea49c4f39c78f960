package usecase

import "github.com/stocklens/newsrag/pkg/domain/model"

// PortfolioBoost raises the relevance of results that mention a holding. A result is boosted
// at most once however many holdings it mentions, and the boosted score never exceeds Cap.
type PortfolioBoost struct {
	Multiplier float64
	Cap        float64
}

var DefaultPortfolioBoost = PortfolioBoost{Multiplier: 1.2, Cap: 1.0}

// Apply boosts matching results in place and reports how many were boosted. Callers re-sort
// with model.SortRanked afterwards.
func (b PortfolioBoost) Apply(results []*model.RankedResult, portfolio *model.PortfolioContext) int {
	if !portfolio.HasHoldings() || b.Multiplier <= 1 {
		return 0
	}

	boosted := 0
	for _, r := range results {
		for _, h := range portfolio.Holdings {
			if r.Mentions(h.Name) {
				r.Relevance = min(r.Relevance*b.Multiplier, b.Cap)
				boosted++
				break
			}
		}
	}
	return boosted
}

// candidatePool is how many results to request from the store. With holdings present more
// candidates are fetched so boosted results below the plain top_k can surface.
func candidatePool(topK int, portfolio *model.PortfolioContext) int {
	if !portfolio.HasHoldings() {
		return topK
	}
	return min(topK*3, maxCandidatePool)
}

const maxCandidatePool = 60
