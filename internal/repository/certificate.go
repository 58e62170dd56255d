package repository

import (
	"context"
	"errors"

	"certapi/internal/model"
)

// ErrNotFound is returned by lookups when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// CertificateRepository is the point-lookup/point-insert gateway over the record store.
// No scans or secondary queries are exposed.
type CertificateRepository interface {
	// FindByID returns the record for id or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Certificate, error)

	// CreateIfAbsent inserts the record unless one already exists for its ID.
	// created reports whether this call wrote the row; an existing row is left untouched.
	CreateIfAbsent(ctx context.Context, cert *model.Certificate) (created bool, err error)
}
