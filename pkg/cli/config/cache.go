package config

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/service/cache"
	"github.com/stocklens/newsrag/pkg/usecase"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Cache holds flags for the search response cache
type Cache struct {
	backend  string
	redisURL string
	ttl      time.Duration
}

func (c *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-backend",
			Usage:       "Search response cache (none, memory, redis)",
			Value:       "memory",
			Category:    "Cache",
			Sources:     cli.EnvVars("NEWSRAG_CACHE_BACKEND"),
			Destination: &c.backend,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL or host:port for the redis cache backend",
			Category:    "Cache",
			Sources:     cli.EnvVars("NEWSRAG_REDIS_URL"),
			Destination: &c.redisURL,
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "How long a search response stays cached",
			Value:       usecase.DefaultCacheTTL,
			Category:    "Cache",
			Sources:     cli.EnvVars("NEWSRAG_CACHE_TTL"),
			Destination: &c.ttl,
		},
	}
}

// Configure returns the search options for the configured cache and a closer. With the "none"
// backend no option is returned.
func (c *Cache) Configure(ctx context.Context) ([]usecase.SearchOption, func(), error) {
	noop := func() {}

	var backend interfaces.ResponseCache
	closer := noop

	switch c.backend {
	case "none", "":
		logging.Default().Info("Search response cache disabled")
		return nil, noop, nil

	case "memory":
		backend = cache.NewMemory()

	case "redis":
		if c.redisURL == "" {
			return nil, noop, goerr.Wrap(ErrMissingFlag, "redis-url is required for the redis cache backend",
				goerr.V(FlagKey, "redis-url"))
		}
		r, err := cache.NewRedis(ctx, c.redisURL)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to configure redis cache")
		}
		backend = r
		closer = func() {
			if err := r.Close(); err != nil {
				logging.Default().Warn("failed to close redis cache", "error", err)
			}
		}

	default:
		return nil, noop, goerr.Wrap(ErrInvalidConfig, "invalid cache backend", goerr.V("backend", c.backend))
	}

	logging.Default().Info("Search response cache enabled", "backend", c.backend, "ttl", c.ttl)
	return []usecase.SearchOption{usecase.WithCache(backend, c.ttl)}, closer, nil
}
