package naver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/preprocess"
	"github.com/stocklens/newsrag/pkg/utils/httputil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/stocklens/newsrag/pkg/utils/safe"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://openapi.naver.com/v1/search/news.json"

	// MaxPageSize and MaxStart are the limits of the search API
	MaxPageSize = 100
	MaxStart    = 1000

	defaultRequestsPerSecond = 8
	defaultTimeout           = 30 * time.Second
)

// Client fetches articles from the Naver news search API
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	now          func() time.Time
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit caps outgoing requests per second
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a Naver client. clientID and clientSecret are the application credentials.
func New(clientID, clientSecret string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, goerr.New("naver client id and secret are required")
	}

	c := &Client{
		endpoint:     DefaultEndpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		maxRetries:   httputil.DefaultMaxRetries,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return "naver"
}

type searchResponse struct {
	Total int          `json:"total"`
	Start int          `json:"start"`
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// Fetch returns one page of articles for keyword sorted by date. start is 1-based.
func (c *Client) Fetch(ctx context.Context, keyword string, start, size int) ([]*model.Article, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, goerr.New("keyword is empty")
	}
	start = min(max(start, 1), MaxStart)
	size = min(max(size, 1), MaxPageSize)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "rate limiter wait failed")
	}

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("display", strconv.Itoa(size))
	q.Set("start", strconv.Itoa(start))
	q.Set("sort", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create naver request")
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call naver search", goerr.V("keyword", keyword))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("naver search returned error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("keyword", keyword))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, goerr.Wrap(err, "failed to decode naver response", goerr.V("keyword", keyword))
	}

	articles := make([]*model.Article, 0, len(body.Items))
	for _, item := range body.Items {
		articles = append(articles, c.toArticle(item))
	}

	logging.From(ctx).Debug("fetched naver news",
		"keyword", keyword,
		"start", start,
		"count", len(articles),
		"total", body.Total,
	)
	return articles, nil
}

func (c *Client) toArticle(item searchItem) *model.Article {
	link := item.OriginalLink
	if link == "" {
		link = item.Link
	}
	title := preprocess.StripTags(item.Title)
	description := preprocess.StripTags(item.Description)

	return &model.Article{
		SourceID:    sourceName(item.Link),
		Title:       title,
		Body:        title + "\n" + description,
		PublishedAt: c.parseDate(item.PubDate),
		URL:         link,
	}
}

// parseDate converts an RFC1123Z pubDate to the published_at layout in KST. Unparseable values
// are stamped with the current time.
func (c *Client) parseDate(s string) string {
	t, err := time.Parse(time.RFC1123Z, strings.TrimSpace(s))
	if err != nil {
		return model.FormatPublishedAt(c.now())
	}
	return model.FormatPublishedAt(t)
}

func sourceName(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(u.Host, "www.")
}
