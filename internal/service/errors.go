package service

import (
	"errors"
	"fmt"

	"certapi/internal/render"
	"certapi/internal/template"
)

// Error kinds surfaced by the issuance pipeline. Downstream causes are wrapped, so callers
// match with errors.Is.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrStoreFailure        = errors.New("record store failure")
	ErrTemplateUnavailable = template.ErrTemplateUnavailable
	ErrRenderFailure       = render.ErrRenderFailure
	ErrPublishFailure      = errors.New("publish failure")
	ErrNotFound            = errors.New("certificate not found")
	ErrIssuanceInProgress  = errors.New("issuance already in progress")
)

// ErrArtifactMissing means the record exists but its published artifact does not.
var ErrArtifactMissing = errors.New("certificate artifact missing")

// ensureKind wraps err with kind unless it already carries it.
func ensureKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
