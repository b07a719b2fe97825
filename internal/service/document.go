package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/workflow"
)

// ErrReaderNil is returned when Upload is called without content.
var ErrReaderNil = fmt.Errorf("%w: reader is nil", ErrInvalidInput)

const (
	downloadURLExpiry = 15 * time.Minute
	// cleanupTimeout bounds follow-up writes that must outlive the request deadline.
	cleanupTimeout = 5 * time.Second
)

// DocumentService defines the use cases of the document catalog.
type DocumentService interface {
	// Upload stores the content in the blob store and registers the document.
	// The blob is removed again if the catalog write fails.
	Upload(ctx context.Context, r io.Reader, filename string, contentType string, size int64) (*model.Document, error)

	// Create registers a document that has no stored content.
	Create(ctx context.Context, filename string) (*model.Document, error)

	// List returns the documents of a view in creation order. An empty view is All.
	List(ctx context.Context, view string) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document's content and record; its properties go with it.
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a time-limited link to the stored content.
	DownloadURL(ctx context.Context, id string) (string, error)

	// Views returns All followed by one view per known class.
	Views() []model.View
}

// DocumentOption customizes a DocumentService.
type DocumentOption func(*documentService)

// OnCreated registers a callback run after each document is committed.
func OnCreated(fn func(model.Document)) DocumentOption {
	return func(s *documentService) { s.created = append(s.created, fn) }
}

type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	workflows *workflow.Registry
	classes   *Classes
	createdBy string
	now       func() time.Time
	created   []func(model.Document)
}

// NewDocumentService constructs a new DocumentService.
// New documents start in the initial state of the default workflow and carry
// Class=Unclassified and CreatedBy=createdBy.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	workflows *workflow.Registry,
	classes *Classes,
	createdBy string,
	opts ...DocumentOption,
) DocumentService {
	s := &documentService{
		store:     store,
		repo:      repo,
		workflows: workflows,
		classes:   classes,
		createdBy: createdBy,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, filename string, contentType string, size int64) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer func() { endSpan(span, err) }()

	if r == nil {
		return nil, ErrReaderNil
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, invalid("filename is required")
	}

	// Stored name is UUID + original extension.
	key := filepath.ToSlash(filepath.Join("documents", uuid.New().String()+filepath.Ext(filename)))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	span.SetAttributes(attribute.String("storage.key", objInfo.Key), attribute.Int64("storage.size", objInfo.Size))

	doc, err = s.create(ctx, &model.Document{
		Filename:    filename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
	})
	if err != nil {
		cctx, cancel := detached(ctx)
		defer cancel()
		if delErr := s.store.Delete(cctx, objInfo.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return doc, nil
}

// detached keeps ctx values (trace, request id) but drops its deadline and cancellation.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func (s *documentService) Create(ctx context.Context, filename string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Create")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, invalid("filename is required")
	}
	return s.create(ctx, &model.Document{Filename: filename})
}

func (s *documentService) create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	doc.ID = uuid.New().String()
	doc.Class = model.Unclassified
	doc.State = s.workflows.Fallback().Initial()
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt

	stored, err := s.repo.Create(ctx, doc, []model.Property{
		{Key: model.ClassKey, Value: model.Unclassified},
		{Key: model.CreatedByKey, Value: s.createdBy},
	})
	if err != nil {
		return nil, err
	}
	for _, fn := range s.created {
		fn(*stored)
	}
	return stored, nil
}

// List resolves the view to a class filter; unknown classes are an error, not an empty page.
func (s *documentService) List(ctx context.Context, view string) (docs []model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.List")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("vault.view", view))

	f := repository.ListFilter{}
	if view != "" && view != model.AllView {
		if !s.classes.Has(view) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
		}
		f.Class = view
	}
	return s.repo.List(ctx, f)
}

func (s *documentService) Get(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, invalid("id is required")
	}
	doc, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return doc, nil
}

// Delete removes the blob first; if that fails the record stays so the content is not orphaned.
// Once the blob is gone the record delete no longer honors the request deadline.
func (s *documentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return invalid("id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, id)
	}
	if doc.StoragePath != "" {
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
		cctx, cancel := detached(ctx)
		defer cancel()
		ctx = cctx
	}
	return s.repo.Delete(ctx, id)
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (u string, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.DownloadURL")
	defer func() { endSpan(span, err) }()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.StoragePath == "" {
		return "", fmt.Errorf("%w: document %s has no stored content", ErrNotFound, id)
	}
	u, err = s.store.PresignGet(ctx, doc.StoragePath, downloadURLExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			return "", err
		}
		return "", fmt.Errorf("presign: %w", err)
	}
	return u, nil
}

func (s *documentService) Views() []model.View {
	names := s.classes.Names()
	views := make([]model.View, 0, len(names)+1)
	views = append(views, model.View{Name: model.AllView})
	for _, c := range names {
		views = append(views, model.View{Name: c, Class: c})
	}
	return views
}
