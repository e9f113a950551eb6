package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrate applies pending migrations for the dialect.
func migrate(ctx context.Context, db *sql.DB, d dialect, logger *zap.Logger) error {
	log := logger.Named("migrator")

	fsys, err := fs.Sub(migrationsFS, d.migrations)
	if err != nil {
		return fmt.Errorf("opening %s migrations: %w", d.name, err)
	}
	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration))
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Debug("schema up to date", zap.Int64("version", version))
	return nil
}
