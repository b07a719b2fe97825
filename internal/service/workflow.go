package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/workflow"
)

// WorkflowService moves documents through their class's workflow.
type WorkflowService interface {
	// Transition fires event on the document's current state.
	Transition(ctx context.Context, id, event string) (*model.Document, error)

	// TransitionTo fires the first event, in table order, that leads to target.
	TransitionTo(ctx context.Context, id, target string) (*model.Document, error)

	// Definitions returns every active table keyed by class; the default is under "".
	Definitions() map[string]workflow.Definition

	// Actions reports what doc can do next under its class's table.
	Actions(doc model.Document) Actions
}

// Actions are the events a document accepts in its current state.
type Actions struct {
	Events   []string `json:"events"`
	Terminal bool     `json:"terminal"`
}

type workflowService struct {
	repo      repository.DocumentRepository
	workflows *workflow.Registry
	observers []workflow.Observer
}

// NewWorkflowService constructs a new WorkflowService. Observers run after the new state is committed.
func NewWorkflowService(repo repository.DocumentRepository, workflows *workflow.Registry, observers ...workflow.Observer) WorkflowService {
	return &workflowService{repo: repo, workflows: workflows, observers: observers}
}

func (s *workflowService) Transition(ctx context.Context, id, event string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "WorkflowService.Transition")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, invalid("id is required")
	}
	if event == "" {
		return nil, invalid("event is required")
	}
	return s.apply(ctx, id, func(m *workflow.Machine, from string) (string, string, error) {
		to, err := m.Fire(from, event)
		return event, to, err
	})
}

func (s *workflowService) TransitionTo(ctx context.Context, id, target string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "WorkflowService.TransitionTo")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, invalid("id is required")
	}
	if target == "" {
		return nil, invalid("new_state is required")
	}
	return s.apply(ctx, id, func(m *workflow.Machine, from string) (string, string, error) {
		event, err := m.EventFor(from, target)
		if err != nil {
			return "", "", err
		}
		to, err := m.Fire(from, event)
		return event, to, err
	})
}

type resolveFunc func(m *workflow.Machine, from string) (event, to string, err error)

// apply decides and persists under the repository's per-document lock, then notifies observers.
func (s *workflowService) apply(ctx context.Context, id string, resolve resolveFunc) (*model.Document, error) {
	var change workflow.Change
	doc, err := s.repo.UpdateState(ctx, id, func(cur model.Document) (string, error) {
		event, to, err := resolve(s.workflows.For(cur.Class), cur.State)
		if err != nil {
			return "", err
		}
		change = workflow.Change{DocumentID: cur.ID, Class: cur.Class, From: cur.State, Event: event, To: to}
		return to, nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("workflow.from", change.From),
		attribute.String("workflow.event", change.Event),
		attribute.String("workflow.to", change.To),
	)
	for _, o := range s.observers {
		o.OnTransition(ctx, change)
	}
	return doc, nil
}

func (s *workflowService) Definitions() map[string]workflow.Definition {
	return s.workflows.Definitions()
}

func (s *workflowService) Actions(doc model.Document) Actions {
	m := s.workflows.For(doc.Class)
	return Actions{Events: m.Events(doc.State), Terminal: m.Terminal(doc.State)}
}
