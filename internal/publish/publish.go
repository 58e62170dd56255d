// Package publish stores rendered certificates under deterministic, publicly resolvable keys.
package publish

import (
	"bytes"
	"context"
	"io"
	"strings"

	"certapi/internal/storage"
)

const (
	ContentTypePDF = "application/pdf"
	keySuffix      = ".pdf"
)

// Publisher uploads artifacts for a certificate ID and derives their public URL.
type Publisher struct {
	store   storage.Storage
	baseURL string
}

// New returns a Publisher writing to store. baseURL is the fixed public root the key is appended to.
func New(store storage.Storage, baseURL string) *Publisher {
	return &Publisher{store: store, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Key is the object key for a certificate ID.
func Key(id string) string {
	return id + keySuffix
}

// URL returns the public location for id without touching storage.
func (p *Publisher) URL(id string) string {
	return p.baseURL + "/" + Key(id)
}

// Publish uploads pdf as a whole, public-read object, replacing any previous artifact for id.
func (p *Publisher) Publish(ctx context.Context, id string, pdf []byte) (string, error) {
	_, err := p.store.Put(ctx, Key(id), bytes.NewReader(pdf), storage.PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: ContentTypePDF,
		Metadata:    map[string]string{"certificate-id": id},
		PublicRead:  true,
	})
	if err != nil {
		return "", err
	}
	return p.URL(id), nil
}

// Open streams the stored artifact for id.
func (p *Publisher) Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	return p.store.Get(ctx, Key(id))
}
