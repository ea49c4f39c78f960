package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/cli/config"
	httpctrl "github.com/stocklens/newsrag/pkg/controller/http"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/service/worker"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var queryTimeout time.Duration
	var ingestInterval time.Duration
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var embCfg config.Embedding
	var cacheCfg config.Cache
	var naverCfg config.Naver
	var ingestCfg config.Ingest
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("NEWSRAG_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "query-timeout",
			Usage:       "Deadline for the retrieval part of one query",
			Value:       usecase.DefaultQueryTimeout,
			Sources:     cli.EnvVars("NEWSRAG_QUERY_TIMEOUT"),
			Destination: &queryTimeout,
		},
		&cli.DurationFlag{
			Name:        "ingest-interval",
			Usage:       "Run ingestion in-process at this interval (0 disables; requires Naver credentials)",
			Category:    "Ingestion",
			Sources:     cli.EnvVars("NEWSRAG_INGEST_INTERVAL"),
			Destination: &ingestInterval,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, embCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)
	flags = append(flags, naverCfg.Flags()...)
	flags = append(flags, ingestCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			comp, err := openModels(ctx, &repoCfg, &geminiCfg, &embCfg)
			if err != nil {
				return err
			}
			defer comp.Close()

			searchOpts, closeCache, err := cacheCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeCache()
			searchOpts = append(searchOpts, usecase.WithQueryTimeout(queryTimeout))

			var ucOpts []usecase.Option
			ucOpts = append(ucOpts, usecase.WithSearchOptions(searchOpts...))

			// Ingestion is only wired when a news source is available
			var source interfaces.NewsSource
			if naverCfg.IsConfigured() {
				naverClient, err := naverCfg.Configure()
				if err != nil {
					return err
				}
				ingestOpts, err := ingestCfg.Configure(comp.store)
				if err != nil {
					return err
				}
				archiveOpts, closeArchive, err := archiveCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer closeArchive()

				ucOpts = append(ucOpts, usecase.WithIngestOptions(append(ingestOpts, archiveOpts...)...))
				source = naverClient
				logging.Default().Info("Ingestion enabled", "source", naverClient.Name(), "ingest", ingestCfg)
			} else {
				logging.Default().Info("Naver credentials not configured, ingestion is disabled")
			}

			uc := usecase.New(source, comp.embedder, comp.store, comp.synth, ucOpts...)

			httpOpts := []httpctrl.Options{
				httpctrl.WithStoreProbe(comp.store),
			}
			if source != nil {
				httpOpts = append(httpOpts, httpctrl.WithIngest(uc.Ingest))
			}
			handler := httpctrl.New(uc.Search, httpOpts...)

			var ingestWorker *worker.IngestWorker
			if source != nil && ingestInterval > 0 {
				ingestWorker = worker.NewIngestWorker(uc.Ingest, ingestInterval,
					worker.WithPurger(uc.Ingest, ingestCfg.RetentionDays()))
				ingestWorker.Start(ctx)
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "store", repoCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if ingestWorker != nil {
					ingestWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				if err := handler.Wait(shutdownCtx); err != nil {
					logging.Default().Warn("background ingestion did not finish before shutdown", "error", err)
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
