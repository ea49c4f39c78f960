package dedup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// DefaultTitleWindow bounds how far apart two articles with the same normalized title may be
// published and still count as duplicates.
const DefaultTitleWindow = 72 * time.Hour

// URLChecker reports whether a URL is already persisted
type URLChecker interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

// Deduplicator admits each article at most once. URLs are checked against the current run and
// the store; the normalized title is only consulted when the URL is missing or the store
// cannot be asked.
type Deduplicator struct {
	checker URLChecker
	window  time.Duration
	now     func() time.Time

	mu     sync.Mutex
	urls   map[string]struct{}
	titles map[string]titleEntry
}

// titleEntry remembers which admitted article recorded a title, so that releasing a different
// article with the same title leaves it in place.
type titleEntry struct {
	seen  time.Time
	owner *model.Article
}

type Option func(*Deduplicator)

func WithTitleWindow(window time.Duration) Option {
	return func(d *Deduplicator) {
		d.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) {
		d.now = now
	}
}

func New(checker URLChecker, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		checker: checker,
		window:  DefaultTitleWindow,
		now:     time.Now,
		urls:    make(map[string]struct{}),
		titles:  make(map[string]titleEntry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Admit checks and marks the article in one step. It returns false for duplicates.
func (d *Deduplicator) Admit(ctx context.Context, article *model.Article) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	url := strings.TrimSpace(article.URL)
	title := model.NormalizeTitle(article.Title)
	ref := d.referenceTime(article)

	titleFallback := url == ""
	if url != "" {
		if _, ok := d.urls[url]; ok {
			return false
		}

		if d.checker != nil {
			exists, err := d.checker.ExistsByURL(ctx, url)
			if err != nil {
				logging.From(ctx).Warn("url existence check failed, falling back to title",
					"url", url, "error", err)
				titleFallback = true
			} else if exists {
				d.urls[url] = struct{}{}
				return false
			}
		}
	}

	entry, hasTitle := d.titles[title]
	titleLive := hasTitle && absDuration(ref.Sub(entry.seen)) <= d.window
	if titleFallback && title != "" && titleLive {
		return false
	}

	if url != "" {
		d.urls[url] = struct{}{}
	}
	if title != "" && !titleLive {
		d.titles[title] = titleEntry{seen: ref, owner: article}
	}
	return true
}

// Forget releases an admitted article, so a later run can admit it again after its chunks
// failed to be stored. The title entry is only dropped when article is the one that recorded it.
func (d *Deduplicator) Forget(article *model.Article) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.urls, strings.TrimSpace(article.URL))

	title := model.NormalizeTitle(article.Title)
	if entry, ok := d.titles[title]; ok && entry.owner == article {
		delete(d.titles, title)
	}
}

// Reset starts a new run. The URL seen-set is cleared since the store answers for earlier
// runs; titles outside the window are evicted. Publish times carry the KST offset, so the
// cutoff is independent of the server's zone.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = make(map[string]struct{})
	cutoff := d.now().Add(-d.window)
	for title, entry := range d.titles {
		if entry.seen.Before(cutoff) {
			delete(d.titles, title)
		}
	}
}

func (d *Deduplicator) referenceTime(article *model.Article) time.Time {
	if t := article.PublishedTime(); !t.IsZero() {
		return t
	}
	return d.now()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
