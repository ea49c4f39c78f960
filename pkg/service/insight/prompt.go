package insight

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/gollem"
	"github.com/stocklens/newsrag/pkg/domain/model"
)

// excerpt returns at most n runes of s
func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

func buildClassifySystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a financial news analyst. Classify the market sentiment of each numbered news article.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Use POSITIVE when the article suggests upside for the related stocks or the market.\n")
	sb.WriteString("2. Use NEGATIVE when the article suggests downside or elevated risk.\n")
	sb.WriteString("3. Use NEUTRAL when the article is factual or mixed.\n")
	sb.WriteString("4. Return exactly one label per article, referencing it by its number.\n")
	return sb.String()
}

func buildClassifyUserPrompt(results []*model.RankedResult, excerptLen int) string {
	var sb strings.Builder
	sb.WriteString("## Articles:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "### [%d] %s\n", i+1, r.Title)
		sb.WriteString(excerpt(r.Text, excerptLen))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func buildClassifySchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "SentimentClassification",
		Description: "Sentiment label for each numbered article",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"sentiments": {
				Type:        gollem.TypeArray,
				Description: "One entry per article",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"index": {
							Type:        gollem.TypeInteger,
							Description: "Article number as given in the prompt",
							Required:    true,
						},
						"sentiment": {
							Type:        gollem.TypeString,
							Description: "POSITIVE, NEGATIVE or NEUTRAL",
							Enum:        []string{"POSITIVE", "NEGATIVE", "NEUTRAL"},
							Required:    true,
						},
					},
				},
			},
		},
	}
}

func buildNarrativeSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an investment research assistant. Analyze the news articles below for an individual investor.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. keyTopics: the main themes across the articles (at most 5).\n")
	sb.WriteString("2. riskFactors: risks an investor should watch (at most 5).\n")
	sb.WriteString("3. opportunities: investment opportunities suggested by the articles (at most 5).\n")
	sb.WriteString("4. recommendedStocks: stocks worth attention, each with symbol, name, reason and confidence between 0 and 1.\n")
	sb.WriteString("5. Answer in the language of the articles. Return empty arrays when the articles do not support an item.\n")
	return sb.String()
}

// buildNarrativeUserPrompt renders the portfolio and the first maxArticles results. The output
// depends only on its arguments.
func buildNarrativeUserPrompt(results []*model.RankedResult, portfolio *model.PortfolioContext, maxArticles, excerptLen int) string {
	var sb strings.Builder

	if portfolio.HasHoldings() || (portfolio != nil && len(portfolio.Sectors) > 0) {
		sb.WriteString("## Portfolio:\n\n")
		for _, h := range portfolio.Holdings {
			fmt.Fprintf(&sb, "- %s (%s) weight %.2f\n", h.Name, h.Symbol, h.Weight)
		}
		if len(portfolio.Sectors) > 0 {
			fmt.Fprintf(&sb, "- Sectors: %s\n", strings.Join(portfolio.Sectors, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Articles:\n\n")
	for i, r := range results {
		if i == maxArticles {
			break
		}
		fmt.Fprintf(&sb, "### [%d] %s (%s)\n", i+1, r.Title, r.PublishedAt)
		sb.WriteString(excerpt(r.Text, excerptLen))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func buildNarrativeSchema() *gollem.Parameter {
	list := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{
			Type:        gollem.TypeArray,
			Description: desc,
			Required:    true,
			Items:       &gollem.Parameter{Type: gollem.TypeString},
		}
	}

	return &gollem.Parameter{
		Title:       "InvestmentInsight",
		Description: "Investment analysis of a set of news articles",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"keyTopics":     list("Main themes"),
			"riskFactors":   list("Risks to watch"),
			"opportunities": list("Investment opportunities"),
			"recommendedStocks": {
				Type:        gollem.TypeArray,
				Description: "Stocks worth attention",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"symbol":     {Type: gollem.TypeString, Description: "Ticker symbol", Required: true},
						"name":       {Type: gollem.TypeString, Description: "Company name", Required: true},
						"reason":     {Type: gollem.TypeString, Description: "Why the stock is relevant", Required: true},
						"confidence": {Type: gollem.TypeNumber, Description: "Confidence between 0 and 1", Required: true},
					},
				},
			},
		},
	}
}
