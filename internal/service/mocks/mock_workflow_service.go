package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"
	"docvault/internal/workflow"
	"github.com/stretchr/testify/mock"
)

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) Transition(ctx context.Context, id, event string) (*model.Document, error) {
	args := m.Called(ctx, id, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockWorkflowService) TransitionTo(ctx context.Context, id, target string) (*model.Document, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockWorkflowService) Definitions() map[string]workflow.Definition {
	args := m.Called()
	return args.Get(0).(map[string]workflow.Definition)
}

func (m *MockWorkflowService) Actions(doc model.Document) service.Actions {
	args := m.Called(doc)
	return args.Get(0).(service.Actions)
}
