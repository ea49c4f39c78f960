package model

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// IngestReport summarizes one ingestion run
type IngestReport struct {
	RunID         string
	Fetched       int
	Admitted      int
	Duplicates    int
	Chunks        int
	Stored        int
	FailedBatches int
	DroppedChunks int
	FetchErrors   int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// NewIngestReport starts a report for a new run
func NewIngestReport(now time.Time) *IngestReport {
	return &IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}
}

func (r *IngestReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", r.RunID),
		slog.Int("fetched", r.Fetched),
		slog.Int("admitted", r.Admitted),
		slog.Int("duplicates", r.Duplicates),
		slog.Int("chunks", r.Chunks),
		slog.Int("stored", r.Stored),
		slog.Int("failed_batches", r.FailedBatches),
		slog.Int("dropped_chunks", r.DroppedChunks),
		slog.Int("fetch_errors", r.FetchErrors),
		slog.Duration("elapsed", r.FinishedAt.Sub(r.StartedAt)),
	)
}
