package memory

import (
	"context"
	"sync"

	"certapi/internal/model"
	"certapi/internal/repository"
)

// CertificateMemory is an in-process record store for offline runs and tests.
type CertificateMemory struct {
	mu    sync.RWMutex
	items map[string]model.Certificate
}

func NewCertificateMemory() *CertificateMemory {
	return &CertificateMemory{items: make(map[string]model.Certificate)}
}

var _ repository.CertificateRepository = (*CertificateMemory)(nil)

func (s *CertificateMemory) FindByID(_ context.Context, id string) (*model.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *CertificateMemory) CreateIfAbsent(_ context.Context, cert *model.Certificate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[cert.ID]; ok {
		return false, nil
	}
	s.items[cert.ID] = *cert
	return true, nil
}

// Len reports how many records are stored.
func (s *CertificateMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
