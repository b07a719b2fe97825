package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// PropertyService reads and writes document metadata.
type PropertyService interface {
	// Properties returns the document's properties in first-write order.
	Properties(ctx context.Context, id string) ([]model.Property, error)

	// SetProperty upserts one key. Writing the same value again changes nothing.
	// The Class key is validated against the known classes and moves the
	// document between views in the same unit.
	SetProperty(ctx context.Context, id, key, value string) error

	// SetClass is SetProperty for the Class key.
	SetClass(ctx context.Context, id, class string) error
}

type propertyService struct {
	repo    repository.PropertyRepository
	classes *Classes
}

// NewPropertyService constructs a new PropertyService.
func NewPropertyService(repo repository.PropertyRepository, classes *Classes) PropertyService {
	return &propertyService{repo: repo, classes: classes}
}

func (s *propertyService) Properties(ctx context.Context, id string) (props []model.Property, err error) {
	ctx, span := tracer.Start(ctx, "PropertyService.Properties")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, invalid("id is required")
	}
	props, err = s.repo.ListByDocument(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return props, nil
}

func (s *propertyService) SetProperty(ctx context.Context, id, key, value string) (err error) {
	ctx, span := tracer.Start(ctx, "PropertyService.SetProperty")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return invalid("id is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return invalid("key is required")
	}
	if key == model.ClassKey && !s.classes.Has(value) {
		return invalid("unknown class %q", value)
	}
	span.SetAttributes(attribute.String("vault.property.key", key))

	changed, err := s.repo.Upsert(ctx, id, model.Property{Key: key, Value: value})
	if err != nil {
		return notFound(err, id)
	}
	span.SetAttributes(attribute.Bool("vault.property.changed", changed))
	return nil
}

func (s *propertyService) SetClass(ctx context.Context, id, class string) error {
	return s.SetProperty(ctx, id, model.ClassKey, class)
}
