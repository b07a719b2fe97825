package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("record not found")

// StateFunc computes the next workflow state from the locked current document.
// Returning an error aborts the update and leaves the document untouched.
type StateFunc func(current model.Document) (string, error)

// ListFilter selects documents for List. An empty Class matches every document.
type ListFilter struct {
	Class string
}

// DocumentRepository defines data access for the document catalog.
// No business logic here, strictly persistence operations. Every method is atomic
// with respect to other calls touching the same document id.
type DocumentRepository interface {
	// Create inserts a new document record together with its initial properties.
	// The caller provides ID, Class, State and CreatedAt.
	Create(ctx context.Context, doc *model.Document, props []model.Property) (*model.Document, error)

	// FindByID returns a document by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns matching documents in creation order.
	List(ctx context.Context, f ListFilter) ([]model.Document, error)

	// UpdateState locks the document, asks next for the new state and stores it in the same unit.
	UpdateState(ctx context.Context, id string, next StateFunc) (*model.Document, error)

	// Delete removes a document and its properties. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// PropertyRepository defines data access for document metadata.
type PropertyRepository interface {
	// ListByDocument returns the document's properties in first-write order, or ErrNotFound.
	ListByDocument(ctx context.Context, documentID string) ([]model.Property, error)

	// Upsert writes p for the document, reporting whether anything changed.
	// Writing model.ClassKey also refreshes the document's cached class in the same unit.
	Upsert(ctx context.Context, documentID string, p model.Property) (bool, error)
}
