// Package sqlite implements the catalog and property repositories on an embedded SQLite database.
//
// The database handle is expected to come from database.NewSQLite, which limits the
// pool to one connection; each mutation runs in its own immediate transaction, which
// serializes writers and gives every operation a consistent view.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, filename, class, state, COALESCE(storage_path, ''), size, content_type, created_at, updated_at`

// Store is a SQLite implementation of both repository interfaces.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store on an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var (
	_ repository.DocumentRepository = (*Store)(nil)
	_ repository.PropertyRepository = (*Store)(nil)
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Filename,
		&d.Class,
		&d.State,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts the document and its initial properties in one transaction.
func (s *Store) Create(ctx context.Context, doc *model.Document, props []model.Property) (*model.Document, error) {
	const qDoc = `
		INSERT INTO documents (id, filename, class, state, storage_path, size, content_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?)
	`
	const qProp = `
		INSERT INTO properties (document_id, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id, key) DO UPDATE SET value = excluded.value
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := doc.CreatedAt.UTC()
	if _, err := tx.ExecContext(ctx, qDoc,
		doc.ID, doc.Filename, doc.Class, doc.State, doc.StoragePath, doc.Size, doc.ContentType, created, created,
	); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	for _, p := range props {
		if _, err := tx.ExecContext(ctx, qProp, doc.ID, p.Key, p.Value, created, created); err != nil {
			return nil, fmt.Errorf("insert property %s: %w", p.Key, err)
		}
	}

	out, err := s.findTx(ctx, tx, doc.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	return scanDocument(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) findTx(ctx context.Context, tx *sql.Tx, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	return scanDocument(tx.QueryRowContext(ctx, q, id))
}

// List returns documents in insertion order, optionally restricted to one class.
func (s *Store) List(ctx context.Context, f repository.ListFilter) ([]model.Document, error) {
	const qAll = `SELECT ` + documentColumns + ` FROM documents ORDER BY seq`
	const qClass = `SELECT ` + documentColumns + ` FROM documents WHERE class = ? ORDER BY seq`

	var (
		rows *sql.Rows
		err  error
	)
	if f.Class == "" {
		rows, err = s.db.QueryContext(ctx, qAll)
	} else {
		rows, err = s.db.QueryContext(ctx, qClass, f.Class)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// UpdateState reads, decides and writes inside one transaction.
func (s *Store) UpdateState(ctx context.Context, id string, next repository.StateFunc) (*model.Document, error) {
	const qUpdate = `UPDATE documents SET state = ?, updated_at = ? WHERE id = ?`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.findTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	to, err := next(*doc)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, qUpdate, to, now, id); err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	doc.State = to
	doc.UpdatedAt = now
	return doc, nil
}

// Delete removes the document; properties follow through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListByDocument returns the properties in first-write order, or ErrNotFound.
func (s *Store) ListByDocument(ctx context.Context, documentID string) ([]model.Property, error) {
	const q = `
		SELECT p.key, p.value
		FROM documents d
		LEFT JOIN properties p ON p.document_id = d.id
		WHERE d.id = ?
		ORDER BY p.id
	`
	rows, err := s.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := false
	items := make([]model.Property, 0)
	for rows.Next() {
		found = true
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if key.Valid {
			items = append(items, model.Property{Key: key.String, Value: value.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return items, nil
}

// Upsert writes the property and, for the Class key, the cached class in the same transaction.
func (s *Store) Upsert(ctx context.Context, documentID string, p model.Property) (bool, error) {
	const qExists = `SELECT 1 FROM documents WHERE id = ?`
	const qUpsert = `
		INSERT INTO properties (document_id, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id, key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at
		WHERE properties.value IS NOT excluded.value
		RETURNING id
	`
	const qClass = `UPDATE documents SET class = ?, updated_at = ? WHERE id = ?`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	if err := tx.QueryRowContext(ctx, qExists, documentID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, err
	}

	now := s.now()
	var propID int64
	err = tx.QueryRowContext(ctx, qUpsert, documentID, p.Key, p.Value, now, now).Scan(&propID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert property: %w", err)
	}

	if p.Key == model.ClassKey {
		if _, err := tx.ExecContext(ctx, qClass, p.Value, now, documentID); err != nil {
			return false, fmt.Errorf("sync class: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
