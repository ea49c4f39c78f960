package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/cli/config"
	httpctrl "github.com/stocklens/newsrag/pkg/controller/http"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var topK int
	var startDate, endDate string
	var minRelevance float64
	var holdings []string
	var sectors []string
	var asJSON bool
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var embCfg config.Embedding

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Number of results (1-20)",
			Value:       model.DefaultTopK,
			Destination: &topK,
		},
		&cli.StringFlag{
			Name:        "start-date",
			Usage:       "Earliest publication day (YYYY-MM-DD)",
			Destination: &startDate,
		},
		&cli.StringFlag{
			Name:        "end-date",
			Usage:       "Latest publication day (YYYY-MM-DD)",
			Destination: &endDate,
		},
		&cli.FloatFlag{
			Name:        "min-relevance",
			Usage:       "Minimum relevance score in [0, 1]",
			Value:       model.DefaultMinRelevance,
			Destination: &minRelevance,
		},
		&cli.StringSliceFlag{
			Name:        "holding",
			Usage:       "Portfolio holding as SYMBOL:NAME (repeatable)",
			Destination: &holdings,
		},
		&cli.StringSliceFlag{
			Name:        "sector",
			Usage:       "Portfolio sector (repeatable)",
			Destination: &sectors,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the API response JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, embCfg.Flags()...)

	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"q"},
		Usage:     "Search stored news and print an insight report",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.Join(c.Args().Slice(), " ")

			q := model.Query{
				Text:         text,
				TopK:         topK,
				MinRelevance: &minRelevance,
			}
			if startDate != "" || endDate != "" {
				q.DateRange = &model.DateRange{Start: startDate, End: endDate}
			}
			portfolio, err := parsePortfolio(holdings, sectors)
			if err != nil {
				return err
			}
			q.Portfolio = portfolio

			comp, err := openModels(ctx, &repoCfg, &geminiCfg, &embCfg)
			if err != nil {
				return err
			}
			defer comp.Close()

			uc := usecase.NewSearchUseCase(comp.embedder, comp.store, comp.synth)
			result, err := uc.Search(ctx, q)
			if err != nil {
				return goerr.Wrap(err, "search failed")
			}

			resp := httpctrl.NewSearchResponse(result)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return goerr.Wrap(err, "failed to encode response")
				}
				return nil
			}

			printSearchResponse(os.Stdout, resp)
			return nil
		},
	}
}

// parsePortfolio turns SYMBOL:NAME arguments into a portfolio context
func parsePortfolio(holdings, sectors []string) (*model.PortfolioContext, error) {
	if len(holdings) == 0 && len(sectors) == 0 {
		return nil, nil
	}

	p := &model.PortfolioContext{Sectors: sectors}
	for _, h := range holdings {
		symbol, name, ok := strings.Cut(h, ":")
		symbol, name = strings.TrimSpace(symbol), strings.TrimSpace(name)
		if !ok || symbol == "" || name == "" {
			return nil, goerr.Wrap(model.ErrValidation, "holding must be SYMBOL:NAME", goerr.V("holding", h))
		}
		p.Holdings = append(p.Holdings, model.Holding{Symbol: symbol, Name: name})
	}
	return p, nil
}

var (
	headColor     = color.New(color.FgHiWhite, color.Bold)
	labelColor    = color.New(color.FgHiCyan)
	dimColor      = color.New(color.FgWhite)
	positiveColor = color.New(color.FgGreen, color.Bold)
	negativeColor = color.New(color.FgRed, color.Bold)
	neutralColor  = color.New(color.FgYellow)
	warnColor     = color.New(color.FgYellow, color.Bold)
)

func sentimentColor(s string) *color.Color {
	switch s {
	case "POSITIVE":
		return positiveColor
	case "NEGATIVE":
		return negativeColor
	default:
		return neutralColor
	}
}

func printSearchResponse(w io.Writer, resp *httpctrl.SearchResponse) {
	headColor.Fprintf(w, "%q: %d of %d matches (%dms)\n\n",
		resp.Query, resp.Metadata.ReturnedCount, resp.Metadata.TotalMatches, resp.Metadata.SearchTimeMs)

	for i, a := range resp.NewsArticles {
		headColor.Fprintf(w, "%2d. %s ", i+1, a.Title)
		sentimentColor(a.Sentiment).Fprintf(w, "[%s]\n", a.Sentiment)
		dimColor.Fprintf(w, "    %s  relevance %.4f\n", a.PublishedAt, a.RelevanceScore)
		dimColor.Fprintf(w, "    %s\n", a.URL)
	}
	if len(resp.NewsArticles) == 0 {
		dimColor.Fprintln(w, "No matching news.")
	}
	fmt.Fprintln(w)

	an := resp.Analysis
	labelColor.Fprint(w, "Overall: ")
	sentimentColor(an.OverallSentiment).Fprintf(w, "%s", an.OverallSentiment)
	fmt.Fprintf(w, "  (+%.0f%% / -%.0f%% / =%.0f%%)\n",
		an.SentimentDistribution.Positive*100,
		an.SentimentDistribution.Negative*100,
		an.SentimentDistribution.Neutral*100)

	printList(w, "Key topics", an.KeyTopics)
	printList(w, "Risks", an.RiskFactors)
	printList(w, "Opportunities", an.Opportunities)

	if len(an.RecommendedStocks) > 0 {
		labelColor.Fprintln(w, "Recommended:")
		for _, s := range an.RecommendedStocks {
			fmt.Fprintf(w, "  - %s %s (%.2f): %s\n", s.Symbol, s.Name, s.Confidence, s.Reason)
		}
	}
	if an.Degraded {
		warnColor.Fprintf(w, "Analysis degraded: %s\n", strings.Join(an.DegradedReasons, "; "))
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	labelColor.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
