package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/cli/config"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/service/embedding"
	"github.com/stocklens/newsrag/pkg/service/insight"
	"github.com/stocklens/newsrag/pkg/service/vectorstore"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// components holds the shared backends of one command invocation
type components struct {
	repo     interfaces.Repository
	store    *vectorstore.Store
	embedder *embedding.Client
	synth    *insight.Synthesizer
	closers  []func()
}

func (c *components) onClose(f func()) {
	c.closers = append(c.closers, f)
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// openStore opens the repository and probes it for the configured embedding dimension
func openStore(ctx context.Context, repoCfg *config.Repository, dimension int) (*components, error) {
	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	c := &components{repo: repo}
	c.onClose(func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	store, err := vectorstore.New(ctx, repo.Record(), dimension)
	if err != nil {
		c.Close()
		return nil, goerr.Wrap(err, "failed to open vector store")
	}
	c.store = store
	return c, nil
}

// openModels opens the store and connects the embedding and synthesis clients to Gemini
func openModels(ctx context.Context, repoCfg *config.Repository, geminiCfg *config.Gemini, embCfg *config.Embedding) (*components, error) {
	c, err := openStore(ctx, repoCfg, embCfg.Dimension())
	if err != nil {
		return nil, err
	}

	llm, err := geminiCfg.Configure(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	embedder, err := embCfg.Configure(llm)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.embedder = embedder
	c.synth = insight.New(llm)

	logging.Default().Info("Models configured", "gemini", geminiCfg.LogAttrs(), "embedding", embCfg)
	return c, nil
}
