package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/service/archive"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Archive holds flags for the optional raw article archive
type Archive struct {
	bucket string
	prefix string
}

func (a *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving raw fetched articles (disabled when empty)",
			Category:    "Archive",
			Sources:     cli.EnvVars("NEWSRAG_ARCHIVE_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object prefix inside the archive bucket",
			Value:       "raw",
			Category:    "Archive",
			Sources:     cli.EnvVars("NEWSRAG_ARCHIVE_PREFIX"),
			Destination: &a.prefix,
		},
	}
}

// Configure returns the ingest option for the archive and a closer. Nothing is returned when no
// bucket is configured.
func (a *Archive) Configure(ctx context.Context) ([]usecase.IngestOption, func(), error) {
	if a.bucket == "" {
		return nil, func() {}, nil
	}

	gcs, err := archive.NewGCS(ctx, a.bucket, a.prefix)
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to configure archive")
	}

	logging.Default().Info("Raw article archive enabled", "bucket", a.bucket, "prefix", a.prefix)
	closer := func() {
		if err := gcs.Close(); err != nil {
			logging.Default().Warn("failed to close archive client", "error", err)
		}
	}
	return []usecase.IngestOption{usecase.WithArchive(gcs)}, closer, nil
}
