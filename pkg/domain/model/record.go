package model

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the default dimension of embedding vectors.
// Gemini text-embedding models are requested at 768 dimensions.
const EmbeddingDimension = 768

// RecordID identifies a stored record. IDs are UUIDv7, so they sort roughly by insertion time.
type RecordID string

// NewRecordID generates a new time-ordered RecordID
func NewRecordID() RecordID {
	id, err := uuid.NewV7()
	if err != nil {
		return RecordID(uuid.New().String())
	}
	return RecordID(id.String())
}

func (id RecordID) String() string {
	return string(id)
}

// Record is the persisted unit of the vector store. Title, Text and URL are never updated in
// place; corrections are new inserts.
type Record struct {
	ID          RecordID
	Embedding   []float32
	Title       string
	Text        string
	PublishedAt string
	URL         string
	ChunkIndex  int
	CreatedAt   time.Time
}

// ScoredRecord is a search hit with its raw distance. Smaller distance is closer regardless of
// the configured metric.
type ScoredRecord struct {
	Record   *Record
	Distance float64
}

// NewRecord builds an unsaved record from a chunk and its embedding
func NewRecord(chunk Chunk, embedding []float32) *Record {
	return &Record{
		Embedding:   embedding,
		Title:       chunk.Title,
		Text:        chunk.Text,
		PublishedAt: chunk.PublishedAt,
		URL:         chunk.URL,
		ChunkIndex:  chunk.Index,
	}
}

// SearchFilter narrows vector search to a closed published_at range. Empty bounds are open.
type SearchFilter struct {
	PublishedFrom string
	PublishedTo   string
}

// Match reports whether publishedAt lies inside the filter bounds
func (f SearchFilter) Match(publishedAt string) bool {
	if f.PublishedFrom != "" && publishedAt < f.PublishedFrom {
		return false
	}
	if f.PublishedTo != "" && publishedAt > f.PublishedTo {
		return false
	}
	return true
}

// IsZero reports whether the filter has no bounds
func (f SearchFilter) IsZero() bool {
	return f.PublishedFrom == "" && f.PublishedTo == ""
}
