package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	"docvault/internal/repository/postgres"
	"docvault/internal/repository/sqlite"
	"docvault/internal/storage"
)

// backend is the catalog and property store selected by STORE_DRIVER.
type backend struct {
	documents  repository.DocumentRepository
	properties repository.PropertyRepository
	close      func() error
}

// openDB opens and migrates the SQL database for driver. Memory has none.
func openDB(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*sql.DB, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case config.StoreSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := migration.EnsureSQLite(ctx, db, log, cfg.SQLite.Path); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case config.StoreMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func openBackend(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*backend, error) {
	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		return &backend{
			documents:  postgres.NewDocumentPostgres(db),
			properties: postgres.NewPropertyPostgres(db),
			close:      db.Close,
		}, nil
	case config.StoreSQLite:
		s := sqlite.New(db)
		return &backend{documents: s, properties: s, close: db.Close}, nil
	default:
		s := memory.New()
		return &backend{documents: s, properties: s, close: func() error { return nil }}, nil
	}
}

func openStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMinIO:
		return storage.NewMinIO(cfg.MinIO)
	case config.StorageNone:
		return storage.NewNop(), nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
