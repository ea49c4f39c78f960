package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/usecase"
)

func TestPortfolioBoost_Apply(t *testing.T) {
	portfolio := &model.PortfolioContext{
		Holdings: []model.Holding{
			{Symbol: "005930", Name: "삼성전자"},
			{Symbol: "000660", Name: "SK하이닉스"},
		},
	}

	t.Run("boosts once per result", func(t *testing.T) {
		results := []*model.RankedResult{
			{RecordID: "both", Title: "삼성전자와 sk하이닉스 실적", Relevance: 0.5},
			{RecordID: "none", Title: "환율 동향", Relevance: 0.5},
		}
		n := usecase.DefaultPortfolioBoost.Apply(results, portfolio)
		gt.Number(t, n).Equal(1)
		gt.Number(t, results[0].Relevance).Equal(0.6)
		gt.Number(t, results[1].Relevance).Equal(0.5)
	})

	t.Run("capped", func(t *testing.T) {
		results := []*model.RankedResult{{RecordID: "r", Text: "삼성전자 신고가", Relevance: 0.95}}
		usecase.DefaultPortfolioBoost.Apply(results, portfolio)
		gt.Number(t, results[0].Relevance).Equal(1.0)
	})

	t.Run("no holdings", func(t *testing.T) {
		results := []*model.RankedResult{{RecordID: "r", Title: "삼성전자", Relevance: 0.8}}
		gt.Number(t, usecase.DefaultPortfolioBoost.Apply(results, &model.PortfolioContext{})).Equal(0)
		gt.Number(t, usecase.DefaultPortfolioBoost.Apply(results, nil)).Equal(0)
		gt.Number(t, results[0].Relevance).Equal(0.8)
	})
}
