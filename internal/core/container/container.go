package container

import (
	"context"

	"github.com/Gusify/QualgenAssets/internal/config"
	"github.com/Gusify/QualgenAssets/internal/database"
	"github.com/Gusify/QualgenAssets/internal/database/migration"
	"github.com/Gusify/QualgenAssets/internal/middleware"

	"go.uber.org/zap"
)

const Version = "1.0.0"

type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *database.PostgresStore
	Runner *migration.MigrationRunner
	Health *middleware.HealthChecker
}

// NewAppContainer connects to the database and wires the migration runner.
// Nothing is migrated yet.
func NewAppContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	var opts []migration.Option
	if cfg.SeedFile != "" {
		seeds, err := migration.LoadSeedSet(cfg.SeedFile)
		if err != nil {
			return nil, &migration.FatalError{Step: "seed_data", Phase: migration.PhasePrepare, Err: err}
		}
		logger.Info("Using seed data override", zap.String("path", cfg.SeedFile))
		opts = append(opts, migration.WithSeedSet(seeds))
	}

	store, err := database.Open(ctx, cfg.DatabaseURL, database.ConnectOptions{
		Attempts: cfg.ConnectAttempts,
		Backoff:  cfg.ConnectBackoff,
	}, logger)
	if err != nil {
		return nil, err
	}

	runner, err := migration.NewRunner(store, logger, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Container{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Runner: runner,
		Health: middleware.NewHealthChecker(store, Version),
	}, nil
}

func (c *Container) Close() error {
	return c.Store.Close()
}
