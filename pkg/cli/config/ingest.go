package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/stocklens/newsrag/pkg/service/chunker"
	"github.com/stocklens/newsrag/pkg/service/dedup"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Ingest holds the ingestion profile. Values come from flags and may be overridden by a TOML file.
type Ingest struct {
	configPath      string
	keywords        []string
	pageSize        int
	pagesPerKeyword int
	chunkSize       int
	chunkOverlap    int
	batchSize       int
	retentionDays   int
	titleWindowDays int
}

// ingestFile is the TOML form of the profile. Unset keys keep the flag values.
type ingestFile struct {
	Keywords        []string `toml:"keywords"`
	PageSize        *int     `toml:"page_size"`
	PagesPerKeyword *int     `toml:"pages_per_keyword"`
	ChunkSize       *int     `toml:"chunk_size"`
	ChunkOverlap    *int     `toml:"chunk_overlap"`
	BatchSize       *int     `toml:"batch_size"`
	RetentionDays   *int     `toml:"retention_days"`
	TitleWindowDays *int     `toml:"title_window_days"`
}

func (x *Ingest) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ingest-config",
			Usage:       "TOML file with the ingestion profile",
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_INGEST_CONFIG"),
			Destination: &x.configPath,
		},
		&cli.StringSliceFlag{
			Name:        "keyword",
			Usage:       "Search keyword fetched on each run (repeatable)",
			Value:       append([]string(nil), usecase.DefaultKeywords...),
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_KEYWORDS"),
			Destination: &x.keywords,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Usage:       "Articles requested per page",
			Value:       usecase.DefaultPageSize,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_PAGE_SIZE"),
			Destination: &x.pageSize,
		},
		&cli.IntFlag{
			Name:        "pages-per-keyword",
			Usage:       "Pages fetched per keyword",
			Value:       usecase.DefaultPagesPerKeyword,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_PAGES_PER_KEYWORD"),
			Destination: &x.pagesPerKeyword,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Chunk size in characters",
			Value:       chunker.DefaultChunkSize,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_CHUNK_SIZE"),
			Destination: &x.chunkSize,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Usage:       "Characters shared by adjacent chunks",
			Value:       chunker.DefaultOverlap,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_CHUNK_OVERLAP"),
			Destination: &x.chunkOverlap,
		},
		&cli.IntFlag{
			Name:        "ingest-batch-size",
			Usage:       "Chunks embedded and stored per batch",
			Value:       usecase.DefaultIngestBatchSize,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_INGEST_BATCH_SIZE"),
			Destination: &x.batchSize,
		},
		&cli.IntFlag{
			Name:        "retention-days",
			Usage:       "Records published before now minus this many days are purged",
			Value:       usecase.DefaultRetentionDays,
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_RETENTION_DAYS"),
			Destination: &x.retentionDays,
		},
		&cli.IntFlag{
			Name:        "title-window-days",
			Usage:       "Days within which a repeated title counts as a duplicate",
			Value:       int(dedup.DefaultTitleWindow / (24 * time.Hour)),
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_TITLE_WINDOW_DAYS"),
			Destination: &x.titleWindowDays,
		},
	}
}

func (x Ingest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("config", x.configPath),
		slog.Any("keywords", x.keywords),
		slog.Int("page_size", x.pageSize),
		slog.Int("pages_per_keyword", x.pagesPerKeyword),
		slog.Int("chunk_size", x.chunkSize),
		slog.Int("chunk_overlap", x.chunkOverlap),
		slog.Int("batch_size", x.batchSize),
		slog.Int("retention_days", x.retentionDays),
		slog.Int("title_window_days", x.titleWindowDays),
	)
}

// Load applies the TOML file, if one is configured, over the flag values
func (x *Ingest) Load() error {
	if x.configPath == "" {
		return nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(x.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return goerr.Wrap(ErrConfigNotFound, "ingest config not found", goerr.V(ConfigPathKey, x.configPath))
		}
		return goerr.Wrap(err, "failed to read ingest config", goerr.V(ConfigPathKey, x.configPath))
	}

	var f ingestFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "failed to parse ingest config",
			goerr.V(ConfigPathKey, x.configPath), goerr.V("cause", err.Error()))
	}

	if len(f.Keywords) > 0 {
		x.keywords = f.Keywords
	}
	setInt(&x.pageSize, f.PageSize)
	setInt(&x.pagesPerKeyword, f.PagesPerKeyword)
	setInt(&x.chunkSize, f.ChunkSize)
	setInt(&x.chunkOverlap, f.ChunkOverlap)
	setInt(&x.batchSize, f.BatchSize)
	setInt(&x.retentionDays, f.RetentionDays)
	setInt(&x.titleWindowDays, f.TitleWindowDays)

	return x.validate()
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (x *Ingest) validate() error {
	switch {
	case len(x.keywords) == 0:
		return goerr.Wrap(ErrInvalidConfig, "at least one keyword is required")
	case x.retentionDays <= 0:
		return goerr.Wrap(ErrInvalidConfig, "retention days must be positive", goerr.V("retention_days", x.retentionDays))
	case x.titleWindowDays < 0:
		return goerr.Wrap(ErrInvalidConfig, "title window must not be negative", goerr.V("title_window_days", x.titleWindowDays))
	}
	return nil
}

// RetentionDays returns the configured retention period
func (x *Ingest) RetentionDays() int {
	return x.retentionDays
}

// Configure loads the profile and returns the ingestion options it describes. checker backs the
// deduplicator's URL lookups.
func (x *Ingest) Configure(checker dedup.URLChecker) ([]usecase.IngestOption, error) {
	if err := x.Load(); err != nil {
		return nil, err
	}
	if err := x.validate(); err != nil {
		return nil, err
	}

	c, err := chunker.New(chunker.WithChunkSize(x.chunkSize), chunker.WithOverlap(x.chunkOverlap))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid chunking parameters",
			goerr.V("chunk_size", x.chunkSize), goerr.V("chunk_overlap", x.chunkOverlap), goerr.V("cause", err.Error()))
	}

	window := time.Duration(x.titleWindowDays) * 24 * time.Hour
	return []usecase.IngestOption{
		usecase.WithKeywords(x.keywords...),
		usecase.WithPageSize(x.pageSize, x.pagesPerKeyword),
		usecase.WithBatching(x.batchSize, usecase.DefaultIngestConcurrency),
		usecase.WithChunker(c),
		usecase.WithDeduplicator(dedup.New(checker, dedup.WithTitleWindow(window))),
	}, nil
}
