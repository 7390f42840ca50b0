package registry

import (
	"context"

	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/mock"
)

// MockProjectRegistry is a mock implementation of ProjectRegistry for testing.
type MockProjectRegistry struct {
	mock.Mock
}

var _ contract.ProjectRegistry = &MockProjectRegistry{} // Compile-time check

// Children implements the ProjectRegistry interface.
func (m *MockProjectRegistry) Children(ctx context.Context, project string) ([]string, error) {
	args := m.Called(ctx, project)
	children, _ := args.Get(0).([]string)
	return children, args.Error(1)
}

// Repositories implements the ProjectRegistry interface.
func (m *MockProjectRegistry) Repositories(ctx context.Context, source schema.DataSource, projects []string) ([]string, error) {
	args := m.Called(ctx, source, projects)
	repos, _ := args.Get(0).([]string)
	return repos, args.Error(1)
}

// Projects implements the ProjectRegistry interface.
func (m *MockProjectRegistry) Projects(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
