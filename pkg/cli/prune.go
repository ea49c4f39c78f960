package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/cli/config"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdPrune() *cli.Command {
	var days int
	var repoCfg config.Repository
	var embCfg config.Embedding

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "retention-days",
			Usage:       "Delete records published before now minus this many days",
			Value:       usecase.DefaultRetentionDays,
			Sources:     cli.EnvVars("NEWSRAG_RETENTION_DAYS"),
			Destination: &days,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, embCfg.Flags()...)

	return &cli.Command{
		Name:  "prune",
		Usage: "Delete records past the retention period",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if days <= 0 {
				return goerr.Wrap(config.ErrInvalidConfig, "retention-days must be positive", goerr.V("days", days))
			}

			comp, err := openStore(ctx, &repoCfg, embCfg.Dimension())
			if err != nil {
				return err
			}
			defer comp.Close()

			uc := usecase.NewIngestUseCase(nil, nil, comp.store)
			deleted, err := uc.PurgeExpired(ctx, days)
			if err != nil {
				return goerr.Wrap(err, "failed to purge expired records")
			}

			logging.Default().Info("Expired records purged", "deleted", deleted, "retention_days", days)
			return nil
		},
	}
}
