// Package memory is an in-process implementation of the catalog and property repositories.
//
// Locking is per document: the index is guarded by an RWMutex that is only held while
// looking up or copying entry pointers, and each document has its own mutex that
// serializes every read and write of that document.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

type entry struct {
	mu    sync.Mutex
	doc   model.Document
	props []model.Property
	// gone is set on delete so callers still holding the pointer see ErrNotFound.
	gone bool
}

// Store keeps documents and their properties in memory.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*entry
	order []*entry
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID: make(map[string]*entry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ repository.DocumentRepository = (*Store)(nil)
	_ repository.PropertyRepository = (*Store)(nil)
)

// Create registers the document and its initial properties.
func (s *Store) Create(ctx context.Context, doc *model.Document, props []model.Property) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := &entry{doc: *doc}
	if e.doc.UpdatedAt.IsZero() {
		e.doc.UpdatedAt = e.doc.CreatedAt
	}
	for _, p := range props {
		upsert(e, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[doc.ID]; dup {
		return nil, fmt.Errorf("document %s already exists", doc.ID)
	}
	s.byID[doc.ID] = e
	s.order = append(s.order, e)

	out := e.doc
	return &out, nil
}

// FindByID returns a copy of the document.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Document, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	out := e.doc
	return &out, nil
}

// List copies each document under its own lock, so every item is a whole pre- or post-image.
func (s *Store) List(ctx context.Context, f repository.ListFilter) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot := make([]*entry, len(s.order))
	copy(snapshot, s.order)
	s.mu.RUnlock()

	view := model.View{Class: f.Class}
	items := make([]model.Document, 0, len(snapshot))
	for _, e := range snapshot {
		e.mu.Lock()
		if !e.gone && view.Matches(e.doc) {
			items = append(items, e.doc)
		}
		e.mu.Unlock()
	}
	return items, nil
}

// UpdateState applies next while holding the document lock.
func (s *Store) UpdateState(ctx context.Context, id string, next repository.StateFunc) (*model.Document, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	to, err := next(e.doc)
	if err != nil {
		return nil, err
	}
	e.doc.State = to
	e.doc.UpdatedAt = s.now()

	out := e.doc
	return &out, nil
}

// Delete removes the document and its properties.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		kept := s.order[:0]
		for _, o := range s.order {
			if o != e {
				kept = append(kept, o)
			}
		}
		s.order = kept
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	e.mu.Lock()
	e.gone = true
	e.props = nil
	e.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ListByDocument returns a copy of the document's properties.
func (s *Store) ListByDocument(ctx context.Context, documentID string) ([]model.Property, error) {
	e, err := s.acquire(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	out := make([]model.Property, len(e.props))
	copy(out, e.props)
	return out, nil
}

// Upsert writes p and, for the Class key, the cached document class under the same lock.
func (s *Store) Upsert(ctx context.Context, documentID string, p model.Property) (bool, error) {
	e, err := s.acquire(ctx, documentID)
	if err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	if !upsert(e, p) {
		return false, nil
	}
	// Only the class cache lives on the document record.
	if p.Key == model.ClassKey {
		e.doc.UpdatedAt = s.now()
	}
	return true, nil
}

// acquire returns the entry for id with its mutex held.
func (s *Store) acquire(ctx context.Context, id string) (*entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	return e, nil
}

// upsert must be called with e.mu held or before e is published.
func upsert(e *entry, p model.Property) bool {
	changed := true
	found := false
	for i := range e.props {
		if e.props[i].Key == p.Key {
			found = true
			if e.props[i].Value == p.Value {
				changed = false
			} else {
				e.props[i].Value = p.Value
			}
			break
		}
	}
	if !found {
		e.props = append(e.props, p)
	}
	if changed && p.Key == model.ClassKey {
		e.doc.Class = p.Value
	}
	return changed
}
