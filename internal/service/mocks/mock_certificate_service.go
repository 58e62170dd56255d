package mocks

import (
	"context"
	"io"

	"certapi/internal/model"
	"certapi/internal/service"
	"certapi/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockCertificateService struct {
	mock.Mock
}

func (m *MockCertificateService) Issue(ctx context.Context, req model.CertificateRequest) (*service.IssueResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssueResult), args.Error(1)
}

func (m *MockCertificateService) Verify(ctx context.Context, id string) (*service.VerifyResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerifyResult), args.Error(1)
}

func (m *MockCertificateService) Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
