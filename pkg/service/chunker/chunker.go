package chunker

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// ErrInvalidParams is returned when overlap is negative or not smaller than the chunk size
var ErrInvalidParams = goerr.New("invalid chunk parameters")

// separators are natural boundaries in preference order. A chunk ends right after the
// separator, so the separator stays with the preceding chunk.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune("다. "),
	[]rune("요. "),
	[]rune(". "),
	[]rune("。"),
	[]rune("! "),
	[]rune("? "),
	[]rune(", "),
	[]rune(" "),
}

// Chunker splits article bodies into overlapping chunks
type Chunker struct {
	size    int
	overlap int
}

// Option configures the chunker
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets the number of characters shared by consecutive chunks
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validate(c.size, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is New for options known to be valid, such as the defaults. It panics otherwise.
func MustNew(opts ...Option) *Chunker {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// SplitArticle splits the article body and attaches the article metadata to every chunk
func (c *Chunker) SplitArticle(article *model.Article) []model.Chunk {
	chunks, _ := Split(article.Body, c.size, c.overlap)
	for i := range chunks {
		chunks[i].Title = article.Title
		chunks[i].PublishedAt = article.PublishedAt
		chunks[i].URL = article.URL
	}
	return chunks
}

func validate(size, overlap int) error {
	if size <= 0 || overlap < 0 || overlap >= size {
		return goerr.Wrap(ErrInvalidParams, "overlap must be in [0, size)",
			goerr.V("size", size), goerr.V("overlap", overlap))
	}
	return nil
}

// Split cuts text into chunks of at most size characters. Each chunk ends on the most
// preferred natural boundary found in its second half, or is cut hard at size characters
// when none exists. The next chunk starts overlap characters before the previous end.
// Offsets are rune positions and strictly increase. Whitespace-only text yields no chunks.
func Split(text string, size, overlap int) ([]model.Chunk, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []model.Chunk
	start := 0
	for start < n {
		end := min(start+size, n)
		if end < n {
			// The boundary must leave room for the overlap so that the next start advances.
			minEnd := max(start+overlap+1, start+size/2)
			if b := lastBoundary(runes, minEnd, end); b > 0 {
				end = b
			}
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, model.Chunk{
				Index:  len(chunks),
				Offset: start,
				End:    end,
				Text:   piece,
			})
		}

		if end >= n {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// lastBoundary returns the position right after the last occurrence of the most preferred
// separator ending within [minEnd, end], or 0 if there is none.
func lastBoundary(runes []rune, minEnd, end int) int {
	for _, sep := range separators {
		for b := end; b >= minEnd; b-- {
			if b-len(sep) < 0 {
				break
			}
			if hasSuffixAt(runes, b, sep) {
				return b
			}
		}
	}
	return 0
}

func hasSuffixAt(runes []rune, pos int, sep []rune) bool {
	for i := range sep {
		if runes[pos-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}
