package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// documentColumns is the projection shared by every document query.
const documentColumns = `id, filename, class, state, COALESCE(storage_path, ''), size, content_type, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Mutations lock the document row (SELECT ... FOR UPDATE) for the length of their transaction.
type DocumentPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

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

// Create inserts the document row and its initial properties in one transaction.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document, props []model.Property) (*model.Document, error) {
	const qDoc = `
		INSERT INTO documents (id, filename, class, state, storage_path, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $8)
		RETURNING ` + documentColumns
	const qProp = `
		INSERT INTO properties (document_id, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (document_id, key) DO UPDATE SET value = EXCLUDED.value
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out, err := scanDocument(tx.QueryRowContext(ctx, qDoc,
		doc.ID,
		doc.Filename,
		doc.Class,
		doc.State,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.CreatedAt,
	))
	if err != nil {
		return nil, err
	}

	for _, p := range props {
		if _, err := tx.ExecContext(ctx, qProp, out.ID, p.Key, p.Value, doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert property %s: %w", p.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents in insertion order, optionally restricted to one class.
func (r *DocumentPostgres) List(ctx context.Context, f repository.ListFilter) ([]model.Document, error) {
	const qAll = `SELECT ` + documentColumns + ` FROM documents ORDER BY seq`
	const qClass = `SELECT ` + documentColumns + ` FROM documents WHERE class = $1 ORDER BY seq`

	var (
		rows *sql.Rows
		err  error
	)
	if f.Class == "" {
		rows, err = r.db.QueryContext(ctx, qAll)
	} else {
		rows, err = r.db.QueryContext(ctx, qClass, f.Class)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateState locks the row, computes the next state and writes it before committing.
func (r *DocumentPostgres) UpdateState(ctx context.Context, id string, next repository.StateFunc) (*model.Document, error) {
	const qLock = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	const qUpdate = `UPDATE documents SET state = $2, updated_at = $3 WHERE id = $1`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := scanDocument(tx.QueryRowContext(ctx, qLock, id))
	if err != nil {
		return nil, err
	}

	to, err := next(*doc)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, qUpdate, id, to, now); err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	doc.State = to
	doc.UpdatedAt = now
	return doc, nil
}

// Delete removes a document by ID; properties go with it through ON DELETE CASCADE.
// It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// Ping verifies database connectivity.
func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
