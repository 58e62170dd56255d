// Package template binds certificate data into the HTML document that is later rendered to PDF.
package template

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"os"
)

const (
	TemplateFile = "certificate.html"
	MedalFile    = "medal.png"
	// DateLayout renders the issuance date as DD/MM/YYYY.
	DateLayout = "02/01/2006"
)

// ErrTemplateUnavailable is returned when the template or medal asset cannot be loaded or executed.
var ErrTemplateUnavailable = errors.New("template unavailable")

//go:embed assets/certificate.html assets/medal.png
var embedded embed.FS

// Context is the data bound into the template. It is built fresh for every issuance.
type Context struct {
	ID    string
	Name  string
	Grade string
	Date  string
	// Medal is the inline data URI of the embedded medal image.
	Medal htmltemplate.URL
}

func (c Context) values() map[string]any {
	return map[string]any{
		"id":    c.ID,
		"name":  c.Name,
		"grade": c.Grade,
		"date":  c.Date,
		"medal": c.Medal,
	}
}

// Binder holds a parsed certificate template and its medal asset.
// It is immutable after construction and safe for concurrent use.
type Binder struct {
	tmpl  *htmltemplate.Template
	medal htmltemplate.URL
}

// NewEmbedded loads the template compiled into the binary.
func NewEmbedded() (*Binder, error) {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateUnavailable, err)
	}
	return New(sub)
}

// NewFromDir loads certificate.html and medal.png from dir.
func NewFromDir(dir string) (*Binder, error) {
	return New(os.DirFS(dir))
}

// New loads the template and medal from fsys. Placeholders id, name, grade, date
// and medal are addressed as {{.id}} and so on; referencing any other key fails at bind time.
func New(fsys fs.FS) (*Binder, error) {
	src, err := fs.ReadFile(fsys, TemplateFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTemplateUnavailable, TemplateFile, err)
	}
	img, err := fs.ReadFile(fsys, MedalFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTemplateUnavailable, MedalFile, err)
	}
	tmpl, err := htmltemplate.New(TemplateFile).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrTemplateUnavailable, err)
	}
	return &Binder{
		tmpl:  tmpl,
		medal: htmltemplate.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img)),
	}, nil
}

// Medal returns the medal asset encoded for inline embedding.
func (b *Binder) Medal() htmltemplate.URL {
	return b.medal
}

// Bind renders the template with c and returns the document text.
func (b *Binder) Bind(c Context) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, c.values()); err != nil {
		return "", fmt.Errorf("%w: execute: %w", ErrTemplateUnavailable, err)
	}
	return buf.String(), nil
}
