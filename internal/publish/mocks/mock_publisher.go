package mocks

import (
	"context"
	"io"

	"certapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, id string, pdf []byte) (string, error) {
	args := m.Called(ctx, id, pdf)
	return args.String(0), args.Error(1)
}

func (m *MockPublisher) URL(id string) string {
	args := m.Called(id)
	return args.String(0)
}

func (m *MockPublisher) Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
