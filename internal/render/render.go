// Package render converts bound certificate HTML into a fixed-layout PDF using a headless browser.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ErrRenderFailure wraps every failure to launch, load or export.
var ErrRenderFailure = errors.New("render failure")

// Profile is the page setup used for export. Paper sizes are in inches, portrait orientation.
type Profile struct {
	PaperWidth        float64
	PaperHeight       float64
	Landscape         bool
	PrintBackground   bool
	PreferCSSPageSize bool
}

// A4Landscape is the certificate profile.
var A4Landscape = Profile{
	PaperWidth:        8.27,
	PaperHeight:       11.69,
	Landscape:         true,
	PrintBackground:   true,
	PreferCSSPageSize: true,
}

// Engine starts browser instances. Each Launch yields an instance owned by the caller.
type Engine interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a single running engine instance. Close terminates it.
type Browser interface {
	PrintToPDF(ctx context.Context, html string, p Profile) ([]byte, error)
	Close() error
}

// Renderer acquires a fresh Browser per call and always releases it before returning.
type Renderer struct {
	engine    Engine
	profile   Profile
	timeout   time.Duration
	debugPath string
	logger    *slog.Logger
}

type Option func(r *Renderer)

// WithTimeout bounds launch plus export. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		r.timeout = d
	}
}

// WithDebugCopy writes every successfully rendered PDF to path. Write errors are logged only.
func WithDebugCopy(path string) Option {
	return func(r *Renderer) {
		r.debugPath = path
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

func WithProfile(p Profile) Option {
	return func(r *Renderer) {
		r.profile = p
	}
}

func New(engine Engine, opts ...Option) *Renderer {
	r := &Renderer{engine: engine, profile: A4Landscape, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render exports html as PDF bytes.
func (r *Renderer) Render(ctx context.Context, html string) (pdf []byte, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	browser, err := r.engine.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %w", ErrRenderFailure, err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.logger.WarnContext(ctx, "browser close failed", "error", cerr)
		}
	}()

	pdf, err = browser.PrintToPDF(ctx, html, r.profile)
	if err != nil {
		return nil, fmt.Errorf("%w: export: %w", ErrRenderFailure, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: export produced no output", ErrRenderFailure)
	}

	if r.debugPath != "" {
		if werr := os.WriteFile(r.debugPath, pdf, 0o644); werr != nil {
			r.logger.WarnContext(ctx, "debug copy not written", "path", r.debugPath, "error", werr)
		}
	}
	return pdf, nil
}
