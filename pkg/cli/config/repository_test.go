package config_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/cli/config"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

func TestRepository_Configure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "COSINE").Configure(t.Context())
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()
		gt.Value(t, repo.Record().Metric()).Equal(types.DistanceCosine)
	})

	t.Run("firestore needs a project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "EUCLIDEAN").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("sqlite", "EUCLIDEAN").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("memory", "MANHATTAN").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestCache_Configure(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		opts, closer, err := config.NewCacheForTest("none", "", time.Minute).Configure(t.Context())
		gt.NoError(t, err).Required()
		defer closer()
		gt.Array(t, opts).Length(0)
	})

	t.Run("memory", func(t *testing.T) {
		opts, closer, err := config.NewCacheForTest("memory", "", time.Minute).Configure(t.Context())
		gt.NoError(t, err).Required()
		defer closer()
		gt.Array(t, opts).Length(1)
	})

	t.Run("redis without url", func(t *testing.T) {
		_, closer, err := config.NewCacheForTest("redis", "", time.Minute).Configure(t.Context())
		defer closer()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, closer, err := config.NewCacheForTest("memcached", "", time.Minute).Configure(t.Context())
		defer closer()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
