package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/database"
	"github.com/nerrad567/hvpsu/internal/infrastructure/logging"
	"github.com/nerrad567/hvpsu/migrations"
)

// migrateDownArg selects the one-shot schema rollback mode.
const migrateDownArg = "migrate-down"

// migrateDown loads the config named by HVPSU_CONFIG and rolls back one
// audit migration. Run it before installing an older hvpsud.
func migrateDown(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return rollbackMigration(ctx, cfg.Database, logging.New(cfg.Logging, version))
}

func rollbackMigration(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) error {
	if !cfg.Enabled {
		return errors.New("audit database is disabled in config")
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Nothing written after the rollback commits

	applied, _, err := db.MigrationStatus(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	if len(applied) == 0 {
		log.Info("no audit migrations applied", "path", cfg.Path)
		return nil
	}

	latest := applied[len(applied)-1].Version
	if err := db.MigrateDown(ctx, migrations.FS, migrations.Dir); err != nil {
		return fmt.Errorf("rolling back migration %s: %w", latest, err)
	}
	log.Info("audit migration rolled back", "version", latest, "path", cfg.Path)
	return nil
}
