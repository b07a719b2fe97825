package workflow

import (
	"context"

	"github.com/sirupsen/logrus"

	"docvault/internal/logging"
)

// Change records one committed transition.
type Change struct {
	DocumentID string
	Class      string
	From       string
	Event      string
	To         string
}

// Observer is notified after a transition has been persisted.
type Observer interface {
	OnTransition(ctx context.Context, c Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change)

func (f ObserverFunc) OnTransition(ctx context.Context, c Change) { f(ctx, c) }

// LogObserver writes each transition as a structured log entry.
func LogObserver(log logrus.FieldLogger) Observer {
	return ObserverFunc(func(ctx context.Context, c Change) {
		logging.FromContext(ctx, log).WithFields(logrus.Fields{
			"component":   "workflow",
			"document_id": c.DocumentID,
			"class":       c.Class,
			"from":        c.From,
			"event":       c.Event,
			"to":          c.To,
		}).Info("workflow_transition")
	})
}
