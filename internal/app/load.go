package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jonboulle/clockwork"
	"github.com/stwalsh4118/streettrees/internal/catalog"
	"github.com/stwalsh4118/streettrees/internal/config"
	"github.com/stwalsh4118/streettrees/internal/database"
	"github.com/stwalsh4118/streettrees/internal/ingest"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/observability"
	"github.com/stwalsh4118/streettrees/internal/repository"
)

// openDatabase connects to Postgres when the configured source needs it and
// returns nil otherwise.
func openDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.Database, error) {
	if !cfg.UsesDatabase() {
		return nil, nil
	}

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_max": cfg.Database.PoolMax,
	})
	return db, nil
}

// loadCatalog builds the catalog from the configured source. db must be open
// when the source is Postgres. metrics may be nil.
func loadCatalog(ctx context.Context, cfg *config.Config, db *database.Database, log *logger.Logger, metrics *observability.Metrics, clock clockwork.Clock) (*catalog.Catalog, error) {
	loader := ingest.NewLoader(log, metrics, clock, ingest.Options{
		Workers:     cfg.Ingest.Workers,
		SkipInvalid: cfg.Ingest.SkipInvalid,
	})

	if cfg.UsesDatabase() {
		cat, _, err := loader.LoadFields(ctx, repository.NewTreeRepository(db))
		return cat, err
	}

	cat, _, err := loader.LoadFile(ctx, cfg.Ingest.File)
	return cat, describeLoadError(cfg.Ingest.File, err)
}

// describeLoadError rewords file access failures for people at a terminal.
func describeLoadError(path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("the file you specified cannot be found: %s: %w", path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("you do not have permission to read the specified file: %s: %w", path, err)
	default:
		return err
	}
}
