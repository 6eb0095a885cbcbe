package main

import (
	"context"

	"github.com/desertthunder/playq/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the persistence server until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port != 0 {
		cfg.Port = port
	}
	dbPath := r.config.Database.Path
	if path := cmd.String("db"); path != "" {
		dbPath = path
	}

	db, err := r.openDatabase(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if r.config.API.Token == "" {
		r.logger.Warn("no api token configured, server accepts unauthenticated requests")
	}

	srv := server.New(db, cfg, r.config.API.Token, r.logger)
	return srv.ListenAndServe(ctx)
}
