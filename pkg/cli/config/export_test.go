package config

import "time"

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

func NewRepositoryForTest(backend, metric string) *Repository {
	return &Repository{
		backend: backend,
		metric:  metric,
	}
}

func NewCacheForTest(backend, redisURL string, ttl time.Duration) *Cache {
	return &Cache{
		backend:  backend,
		redisURL: redisURL,
		ttl:      ttl,
	}
}

// NewIngestForTest returns a profile holding the flag defaults
func NewIngestForTest(configPath string) *Ingest {
	return &Ingest{
		configPath:      configPath,
		keywords:        []string{"증시"},
		pageSize:        100,
		pagesPerKeyword: 1,
		chunkSize:       500,
		chunkOverlap:    50,
		batchSize:       32,
		retentionDays:   30,
		titleWindowDays: 3,
	}
}

func (x *Ingest) Keywords() []string { return x.keywords }
func (x *Ingest) PageSize() int { return x.pageSize }
func (x *Ingest) ChunkSize() int { return x.chunkSize }
func (x *Ingest) TitleWindowDays() int { return x.titleWindowDays }
func (x *Ingest) PagesPerKeyword() int { return x.pagesPerKeyword }
