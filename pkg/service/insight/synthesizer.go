package insight

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

const (
	DefaultMaxArticles = 5
	DefaultExcerptLen  = 300

	// one initial attempt and one retry
	llmAttempts = 2
)

// Synthesizer turns ranked results into an InsightReport. It never fails: when the language
// model is missing or misbehaves the report is degraded instead.
type Synthesizer struct {
	llm         gollem.LLMClient
	maxArticles int
	excerptLen  int
}

type Option func(*Synthesizer)

func WithMaxArticles(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxArticles = n
		}
	}
}

func WithExcerptLen(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.excerptLen = n
		}
	}
}

// New creates a Synthesizer. llm may be nil, in which case sentiment falls back to the keyword
// lexicon and no narrative is produced.
func New(llm gollem.LLMClient, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		llm:         llm,
		maxArticles: DefaultMaxArticles,
		excerptLen:  DefaultExcerptLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds the report for results. An empty input yields the neutral empty report
// without any model call.
func (s *Synthesizer) Synthesize(ctx context.Context, results []*model.RankedResult, portfolio *model.PortfolioContext) *model.InsightReport {
	report := model.NewEmptyInsightReport()
	if len(results) == 0 {
		return report
	}

	logger := logging.From(ctx)

	if s.llm == nil {
		report.Sentiments = classifyByLexicon(results)
		report.Degrade("language model is not configured")
		aggregate(report)
		return report
	}

	sentiments, err := s.classify(ctx, results)
	if err != nil {
		errutil.Warn(ctx, err, "sentiment classification failed, using lexicon")
		sentiments = classifyByLexicon(results)
		report.Degrade("sentiment classification unavailable")
	}
	report.Sentiments = sentiments
	aggregate(report)

	fields, err := s.narrate(ctx, results, portfolio)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(model.ErrSynthesisDegraded, "narrative generation failed",
			goerr.V("cause", err.Error()),
			goerr.V("results", len(results)),
		), "insight narrative degraded")
		report.Degrade("narrative unavailable")
		return report
	}

	report.KeyTopics = fields.KeyTopics
	report.RiskFactors = fields.RiskFactors
	report.Opportunities = fields.Opportunities
	report.RecommendedInstruments = fields.Instruments

	logger.Debug("insight synthesized",
		"results", len(results),
		"overall", report.OverallSentiment,
		"degraded", report.Degraded,
	)
	return report
}

type classification struct {
	Sentiments []struct {
		Index     int    `json:"index"`
		Sentiment string `json:"sentiment"`
	} `json:"sentiments"`
}

// classify labels all results in one model call, retrying once
func (s *Synthesizer) classify(ctx context.Context, results []*model.RankedResult) ([]types.Sentiment, error) {
	var lastErr error
	for attempt := 1; attempt <= llmAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(ctx.Err(), "context done before classification")
		}

		sentiments, err := s.classifyOnce(ctx, results)
		if err == nil {
			return sentiments, nil
		}
		lastErr = err
		logging.From(ctx).Debug("classification attempt failed", "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (s *Synthesizer) classifyOnce(ctx context.Context, results []*model.RankedResult) ([]types.Sentiment, error) {
	text, err := s.generate(ctx, buildClassifySystemPrompt(), buildClassifySchema(),
		buildClassifyUserPrompt(results, s.excerptLen))
	if err != nil {
		return nil, err
	}

	var c classification
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse classification", goerr.V("response", text))
	}

	sentiments := make([]types.Sentiment, len(results))
	for _, entry := range c.Sentiments {
		i := entry.Index - 1
		if i < 0 || i >= len(results) || sentiments[i] != "" {
			continue
		}
		label, err := types.ParseSentiment(entry.Sentiment)
		if err != nil {
			continue
		}
		sentiments[i] = label
	}

	for i, label := range sentiments {
		if label == "" {
			return nil, goerr.New("classification is missing an article", goerr.V("index", i+1))
		}
	}
	return sentiments, nil
}

// narrate asks for the narrative fields, retrying once on malformed output or call failure
func (s *Synthesizer) narrate(ctx context.Context, results []*model.RankedResult, portfolio *model.PortfolioContext) (*Fields, error) {
	userPrompt := buildNarrativeUserPrompt(results, portfolio, s.maxArticles, s.excerptLen)

	var lastErr error
	for attempt := 1; attempt <= llmAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(ctx.Err(), "context done before narrative")
		}

		text, err := s.generate(ctx, buildNarrativeSystemPrompt(), buildNarrativeSchema(), userPrompt)
		if err != nil {
			lastErr = err
			continue
		}

		switch out := ParseNarrative(text).(type) {
		case Parsed:
			return &out.Fields, nil
		case Malformed:
			lastErr = goerr.New("malformed narrative", goerr.V("reason", out.Reason), goerr.V("response", out.Raw))
			logging.From(ctx).Debug("narrative attempt malformed", "attempt", attempt, "reason", out.Reason)
		}
	}
	return nil, lastErr
}

func (s *Synthesizer) generate(ctx context.Context, systemPrompt string, schema *gollem.Parameter, userPrompt string) (string, error) {
	session, err := s.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned empty response")
	}
	return strings.Join(resp.Texts, ""), nil
}

func classifyByLexicon(results []*model.RankedResult) []types.Sentiment {
	sentiments := make([]types.Sentiment, len(results))
	for i, r := range results {
		sentiments[i] = lexiconSentiment(r.Title + "\n" + r.Text)
	}
	return sentiments
}

// aggregate fills the distribution and the plurality label from report.Sentiments. Ties go to
// the earlier label in types.AllSentiments.
func aggregate(report *model.InsightReport) {
	n := len(report.Sentiments)
	if n == 0 {
		report.OverallSentiment = types.SentimentNeutral
		report.Distribution = model.SentimentDistribution{Neutral: 1}
		return
	}

	counts := make(map[types.Sentiment]int, 3)
	for _, s := range report.Sentiments {
		counts[s]++
	}

	report.Distribution = model.SentimentDistribution{
		Positive: float64(counts[types.SentimentPositive]) / float64(n),
		Negative: float64(counts[types.SentimentNegative]) / float64(n),
		Neutral:  float64(counts[types.SentimentNeutral]) / float64(n),
	}

	overall := types.SentimentNeutral
	best := -1
	for _, label := range types.AllSentiments() {
		if counts[label] > best {
			best = counts[label]
			overall = label
		}
	}
	report.OverallSentiment = overall
}
