package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/asaskevich/govalidator"

	"certapi/internal/model"
)

const (
	maxIDLength    = "128"
	maxNameLength  = "256"
	maxGradeLength = "32"
	// IDs become object keys and URL path segments, so they are restricted to characters safe in both.
	idPattern = `^[A-Za-z0-9_.@-]+$`
)

// DecodeRequest parses an issuance body into a validated CertificateRequest.
// Unknown fields, wrong types and trailing data are rejected.
func DecodeRequest(body []byte) (model.CertificateRequest, error) {
	var req model.CertificateRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return model.CertificateRequest{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.CertificateRequest{}, fmt.Errorf("%w: unexpected data after request object", ErrMalformedInput)
	}
	if err := ValidateRequest(req); err != nil {
		return model.CertificateRequest{}, err
	}
	return req, nil
}

// ValidateRequest checks presence and bounds of every field.
func ValidateRequest(req model.CertificateRequest) error {
	if !ValidID(req.ID) {
		return fmt.Errorf("%w: id must be 1-%s characters of [A-Za-z0-9_.@-]", ErrMalformedInput, maxIDLength)
	}
	if strings.TrimSpace(req.Name) == "" || !govalidator.StringLength(req.Name, "1", maxNameLength) {
		return fmt.Errorf("%w: name is required (max %s characters)", ErrMalformedInput, maxNameLength)
	}
	if strings.TrimSpace(req.Grade) == "" || !govalidator.StringLength(req.Grade, "1", maxGradeLength) {
		return fmt.Errorf("%w: grade is required (max %s characters)", ErrMalformedInput, maxGradeLength)
	}
	return nil
}

// ValidID reports whether id can name a certificate.
// "." and ".." are refused since they would resolve as relative path segments.
func ValidID(id string) bool {
	if strings.Trim(id, ".") == "" {
		return false
	}
	return govalidator.StringLength(id, "1", maxIDLength) && govalidator.Matches(id, idPattern)
}
