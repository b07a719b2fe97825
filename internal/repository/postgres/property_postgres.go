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

// PropertyPostgres is a PostgreSQL implementation of repository.PropertyRepository.
type PropertyPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPropertyPostgres creates a new PropertyPostgres repository.
func NewPropertyPostgres(db *sql.DB) *PropertyPostgres {
	return &PropertyPostgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.PropertyRepository = (*PropertyPostgres)(nil)

// ListByDocument reads the document and its properties in one statement.
// No rows means the document does not exist; a single NULL row means it has no properties.
func (r *PropertyPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Property, error) {
	const q = `
		SELECT p.key, p.value
		FROM documents d
		LEFT JOIN properties p ON p.document_id = d.id
		WHERE d.id = $1
		ORDER BY p.id
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
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

// Upsert writes the property under the document's row lock.
// An identical value leaves the row untouched.
func (r *PropertyPostgres) Upsert(ctx context.Context, documentID string, p model.Property) (bool, error) {
	const qLock = `SELECT id FROM documents WHERE id = $1 FOR UPDATE`
	const qUpsert = `
		INSERT INTO properties (document_id, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (document_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		WHERE properties.value IS DISTINCT FROM EXCLUDED.value
		RETURNING id
	`
	const qClass = `UPDATE documents SET class = $2, updated_at = $3 WHERE id = $1`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	if err := tx.QueryRowContext(ctx, qLock, documentID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, err
	}

	now := r.now()
	var propID int64
	err = tx.QueryRowContext(ctx, qUpsert, documentID, p.Key, p.Value, now).Scan(&propID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert property: %w", err)
	}

	if p.Key == model.ClassKey {
		if _, err := tx.ExecContext(ctx, qClass, documentID, p.Value, now); err != nil {
			return false, fmt.Errorf("sync class: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
