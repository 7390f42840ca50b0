package datastore

import (
	"context"

	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/mock"
)

// MockQuerier is a mock implementation of Querier for testing.
type MockQuerier struct {
	mock.Mock
}

var _ contract.Querier = &MockQuerier{} // Compile-time check

// Query implements the Querier interface.
func (m *MockQuerier) Query(ctx context.Context, sql string) (*schema.Rows, error) {
	args := m.Called(ctx, sql)
	rows, _ := args.Get(0).(*schema.Rows)
	return rows, args.Error(1)
}
