package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) Properties(ctx context.Context, id string) ([]model.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Property), args.Error(1)
}

func (m *MockPropertyService) SetProperty(ctx context.Context, id, key, value string) error {
	args := m.Called(ctx, id, key, value)
	return args.Error(0)
}

func (m *MockPropertyService) SetClass(ctx context.Context, id, class string) error {
	args := m.Called(ctx, id, class)
	return args.Error(0)
}
