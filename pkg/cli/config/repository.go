package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"github.com/stocklens/newsrag/pkg/repository/firestore"
	"github.com/stocklens/newsrag/pkg/repository/memory"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the vector store backend
type Repository struct {
	backend    string
	projectID  string
	databaseID string
	collection string
	metric     string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore or memory)",
			Value:       "firestore",
			Category:    "Repository",
			Sources:     cli.EnvVars("NEWSRAG_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("NEWSRAG_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("NEWSRAG_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection holding news records",
			Value:       firestore.DefaultCollection,
			Category:    "Repository",
			Sources:     cli.EnvVars("NEWSRAG_FIRESTORE_COLLECTION"),
			Destination: &r.collection,
		},
		&cli.StringFlag{
			Name:        "distance-metric",
			Usage:       "Vector distance metric (EUCLIDEAN, COSINE, DOT_PRODUCT)",
			Value:       types.DistanceEuclidean.String(),
			Category:    "Repository",
			Sources:     cli.EnvVars("NEWSRAG_DISTANCE_METRIC"),
			Destination: &r.metric,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection", r.collection),
		slog.String("metric", r.metric),
	)
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Collection returns the Firestore collection name
func (r *Repository) Collection() string {
	return r.collection
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	metric, err := types.ParseDistanceMetric(r.metric)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid distance metric", goerr.V("metric", r.metric))
	}

	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend",
				goerr.V(FlagKey, "firestore-project-id"))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID,
			firestore.WithCollection(r.collection),
			firestore.WithMetric(metric),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository", "repository", r)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)", "metric", metric)
		return memory.New(memory.WithMetric(metric)), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V("backend", r.backend))
	}
}
