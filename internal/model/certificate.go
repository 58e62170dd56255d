package model

import "time"

// CertificateRequest is the inbound issuance payload. ID is the caller-supplied natural key.
type CertificateRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

// Certificate is the persisted proof that a certificate was issued for an ID.
// At most one exists per ID; it is never updated by re-issuance.
type Certificate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}
