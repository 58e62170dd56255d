package mocks

import (
	"context"

	"certapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockCertificateRepository struct {
	mock.Mock
}

func (m *MockCertificateRepository) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Certificate), args.Error(1)
}

func (m *MockCertificateRepository) CreateIfAbsent(ctx context.Context, cert *model.Certificate) (bool, error) {
	args := m.Called(ctx, cert)
	return args.Bool(0), args.Error(1)
}
