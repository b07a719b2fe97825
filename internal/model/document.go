package model

import "time"

// Well-known property keys written on upload.
const (
	ClassKey     = "Class"
	CreatedByKey = "CreatedBy"
)

// Unclassified is the class every document starts in.
const Unclassified = "Unclassified"

// Document represents a stored file in the vault.
// This is a pure domain model with no database-specific dependencies.
// Class is a cache of the document's Class property and is never written on its own.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Class       string    `json:"class"`
	State       string    `json:"state"`
	StoragePath string    `json:"storage_path,omitempty"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
