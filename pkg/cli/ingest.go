package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/cli/config"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var purge bool
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var embCfg config.Embedding
	var naverCfg config.Naver
	var ingestCfg config.Ingest
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "purge",
			Usage:       "Purge records past the retention period after the run",
			Sources:     cli.EnvVars("NEWSRAG_INGEST_PURGE"),
			Destination: &purge,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, embCfg.Flags()...)
	flags = append(flags, naverCfg.Flags()...)
	flags = append(flags, ingestCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Run one ingestion pass: fetch, deduplicate, chunk, embed and store news",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			naverClient, err := naverCfg.Configure()
			if err != nil {
				return err
			}

			comp, err := openModels(ctx, &repoCfg, &geminiCfg, &embCfg)
			if err != nil {
				return err
			}
			defer comp.Close()

			ingestOpts, err := ingestCfg.Configure(comp.store)
			if err != nil {
				return err
			}
			archiveOpts, closeArchive, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeArchive()

			uc := usecase.NewIngestUseCase(naverClient, comp.embedder, comp.store, append(ingestOpts, archiveOpts...)...)

			report, err := uc.RunIngestion(ctx)
			if err != nil {
				return goerr.Wrap(err, "ingestion failed")
			}
			logging.Default().Info("Ingestion finished", "report", report)

			if purge {
				deleted, err := uc.PurgeExpired(ctx, ingestCfg.RetentionDays())
				if err != nil {
					return goerr.Wrap(err, "failed to purge expired records")
				}
				logging.Default().Info("Expired records purged", "deleted", deleted, "retention_days", ingestCfg.RetentionDays())
			}
			return nil
		},
	}
}
