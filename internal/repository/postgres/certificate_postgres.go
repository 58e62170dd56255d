package postgres

import (
	"context"
	"database/sql"
	"errors"

	"certapi/internal/model"
	"certapi/internal/repository"
)

// CertificatePostgres is a PostgreSQL implementation of repository.CertificateRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CertificatePostgres struct {
	db *sql.DB
}

// NewCertificatePostgres creates a new CertificatePostgres repository.
func NewCertificatePostgres(db *sql.DB) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

var _ repository.CertificateRepository = (*CertificatePostgres)(nil)

// FindByID fetches a single certificate record by its ID.
func (r *CertificatePostgres) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	const q = `
		SELECT id, name, grade, created_at
		FROM certificates
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var c model.Certificate
	if err := row.Scan(&c.ID, &c.Name, &c.Grade, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateIfAbsent inserts the record, leaving any existing row for the same ID intact.
func (r *CertificatePostgres) CreateIfAbsent(ctx context.Context, cert *model.Certificate) (bool, error) {
	const q = `
		INSERT INTO certificates (id, name, grade, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q, cert.ID, cert.Name, cert.Grade, cert.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
