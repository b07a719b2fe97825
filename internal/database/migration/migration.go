package migration

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  seq          BIGSERIAL   NOT NULL UNIQUE,
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  filename     TEXT        NOT NULL,
  class        TEXT        NOT NULL DEFAULT 'Unclassified',
  state        TEXT        NOT NULL,
  storage_path TEXT        UNIQUE,
  size         BIGINT      NOT NULL DEFAULT 0 CHECK (size >= 0),
  content_type TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_class",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_class ON documents (class, seq);`,
	},
	{
		Name: "create_index_documents_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_state ON documents (state);`,
	},
	{
		Name: "create_table_properties",
		SQL: `CREATE TABLE IF NOT EXISTS properties (
  id          BIGSERIAL   PRIMARY KEY,
  document_id UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  key         TEXT        NOT NULL,
  value       TEXT        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, key)
);`,
	},
	{
		Name: "create_index_properties_key_value",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_properties_key_value ON properties (key, value);`,
	},
}

//go:embed sqlite.sql
var sqliteSchema string

// EnsureMigrated checks if the 'properties' table exists and runs migrations if it doesn't.
// Every step is idempotent, so a partially migrated database is completed on the next run.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger, dbHost string) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{"component": "database", "db_host": dbHost})

	log.WithField("status", "starting").Info("db_migration_check")

	var exists bool
	query := "SELECT to_regclass('public.properties') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.WithFields(logrus.Fields{
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms":   time.Since(start).Milliseconds(),
		}).Error("db_migration_failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("db_migration_skip")
		return nil
	}

	log.WithField("status", "in_progress").Info("db_migration_start")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithFields(logrus.Fields{
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).Error("db_migration_failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("db_migration_step")
	}

	log.WithFields(logrus.Fields{
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("db_migration_success")

	return nil
}

// EnsureSQLite applies the embedded SQLite schema. It is idempotent.
func EnsureSQLite(ctx context.Context, db *sql.DB, log logrus.FieldLogger, path string) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{"component": "database", "sqlite_path": path})

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		log.WithFields(logrus.Fields{
			"status":        "error",
			"error_message": err.Error(),
		}).Error("db_migration_failed")
		return fmt.Errorf("apply sqlite schema: %w", err)
	}

	log.WithFields(logrus.Fields{
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("db_migration_success")
	return nil
}
