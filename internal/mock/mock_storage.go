package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/storage-analysis/internal/storage"
)

// MockStorage is a mock implementation of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

// Put mocks the Put method.
func (m *MockStorage) Put(ctx context.Context, key string, reader io.Reader, opts *storage.PutOptions) error {
	args := m.Called(ctx, key, reader, opts)
	return args.Error(0)
}

// PutFile mocks the PutFile method.
func (m *MockStorage) PutFile(ctx context.Context, key string, localPath string, opts *storage.PutOptions) error {
	args := m.Called(ctx, key, localPath, opts)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// URL mocks the URL method.
func (m *MockStorage) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectPutFile sets up an expectation for PutFile with any key.
func (m *MockStorage) ExpectPutFile(localPath string, err error) *mock.Call {
	return m.On("PutFile", mock.Anything, mock.Anything, localPath, mock.Anything).Return(err)
}

// ExpectURL sets up an expectation for URL with any key.
func (m *MockStorage) ExpectURL(url string) *mock.Call {
	return m.On("URL", mock.Anything).Return(url)
}
