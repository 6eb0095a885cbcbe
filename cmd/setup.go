package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/playq/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Configuration written to %s\n", path)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); r.configPath != "" && err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", r.configPath)
		}
	}

	db, err := r.openDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd != nil && cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.logger.Warn("rolled back latest migration", "path", r.config.Database.Path)
		return r.writePlain("✓ Rolled back the latest migration on %s\n", r.config.Database.Path)
	}

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(applied))
}

// openDatabase opens the SQLite file at path, applies pool settings and runs migrations.
func (r *Runner) openDatabase(path string) (*sql.DB, error) {
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
