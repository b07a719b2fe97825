package service

import (
	"errors"
	"fmt"

	"docvault/internal/repository"
	"docvault/internal/workflow"
)

// Errors returned by the services. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrIllegalTransition = workflow.ErrIllegalTransition
	ErrUnknownView       = errors.New("unknown view")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound translates the repository sentinel so handlers never import repository.
func notFound(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return err
}
