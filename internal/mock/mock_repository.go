// Package mock provides testify mocks of the repository and storage
// interfaces.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/storage-analysis/internal/repository"
)

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

var _ repository.RunRepository = (*MockRunRepository)(nil)

// SaveRun mocks the SaveRun method.
func (m *MockRunRepository) SaveRun(ctx context.Context, run *repository.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// GetRun mocks the GetRun method.
func (m *MockRunRepository) GetRun(ctx context.Context, id int64) (*repository.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Run), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRunRepository) ListRuns(ctx context.Context, network string, limit int) ([]*repository.Run, error) {
	args := m.Called(ctx, network, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Run), args.Error(1)
}

// ExpectSaveRun sets up an expectation for SaveRun. A nil err assigns id to
// the saved run.
func (m *MockRunRepository) ExpectSaveRun(id int64, err error) *mock.Call {
	return m.On("SaveRun", mock.Anything, mock.AnythingOfType("*repository.Run")).
		Run(func(args mock.Arguments) {
			if err == nil {
				args.Get(1).(*repository.Run).ID = id
			}
		}).
		Return(err)
}

// NewRepositories wraps runs in a Repositories value.
func NewRepositories(runs repository.RunRepository) *repository.Repositories {
	return &repository.Repositories{Runs: runs}
}
