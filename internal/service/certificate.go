package service

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certapi/internal/lock"
	"certapi/internal/model"
	"certapi/internal/repository"
	"certapi/internal/storage"
	"certapi/internal/template"
)

const (
	MessageCreated = "Certificate Created!"
	MessageInvalid = "Invalid certificate!"
)

var tracer = otel.Tracer("certapi/internal/service")

// IssueResult is the success payload of an issuance.
type IssueResult struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// VerifyResult is returned for an issued certificate.
type VerifyResult struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// Binder produces the certificate document text.
type Binder interface {
	Medal() htmltemplate.URL
	Bind(c template.Context) (string, error)
}

// Renderer converts document text into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Publisher stores artifacts under the certificate ID and resolves their public URL.
type Publisher interface {
	Publish(ctx context.Context, id string, pdf []byte) (string, error)
	URL(id string) string
	Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

// CertificateService defines the certificate use cases.
type CertificateService interface {
	// Issue records the certificate if it is new, then renders and publishes its artifact.
	// The artifact always reflects req, even when an earlier record for req.ID is kept.
	Issue(ctx context.Context, req model.CertificateRequest) (*IssueResult, error)

	// Verify returns the stored holder name and artifact URL for id, or ErrNotFound.
	Verify(ctx context.Context, id string) (*VerifyResult, error)

	// Open streams the published artifact for an issued certificate.
	Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

type certificateService struct {
	repo      repository.CertificateRepository
	binder    Binder
	renderer  Renderer
	publisher Publisher
	locker    lock.Locker
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
	loc       *time.Location
}

type Option func(s *certificateService)

// WithLocker serializes issuance per ID. Without it requests for the same ID may interleave.
func WithLocker(l lock.Locker) Option {
	return func(s *certificateService) {
		s.locker = l
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *certificateService) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *certificateService) {
		s.metrics = m
	}
}

// WithClock overrides the issuance date source.
func WithClock(now func() time.Time) Option {
	return func(s *certificateService) {
		s.now = now
	}
}

// WithLocation sets the timezone the issuance date is printed in.
func WithLocation(loc *time.Location) Option {
	return func(s *certificateService) {
		s.loc = loc
	}
}

// NewCertificateService constructs a new CertificateService.
func NewCertificateService(repo repository.CertificateRepository, binder Binder, renderer Renderer, publisher Publisher, opts ...Option) CertificateService {
	s := &certificateService{
		repo:      repo,
		binder:    binder,
		renderer:  renderer,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *certificateService) Issue(ctx context.Context, req model.CertificateRequest) (*IssueResult, error) {
	ctx, span := tracer.Start(ctx, "certificate.Issue", trace.WithAttributes(attribute.String("certificate.id", req.ID)))
	defer span.End()

	res, err := s.issue(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issuance failed")
		s.metrics.observeOutcome("failed")
		s.logger.ErrorContext(ctx, "certificate issuance failed", "certificate_id", req.ID, "error", err)
		return nil, err
	}
	s.metrics.observeOutcome("issued")
	s.logger.InfoContext(ctx, "certificate issued", "certificate_id", req.ID, "url", res.URL)
	return res, nil
}

func (s *certificateService) issue(ctx context.Context, req model.CertificateRequest) (*IssueResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, req.ID)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				return nil, fmt.Errorf("%w: %s", ErrIssuanceInProgress, req.ID)
			}
			return nil, fmt.Errorf("%w: acquire issuance lock: %w", ErrStoreFailure, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "issuance lock release failed", "certificate_id", req.ID, "error", err)
			}
		}()
	}

	if err := s.ensureRecord(ctx, req); err != nil {
		return nil, err
	}

	doc, err := s.bind(ctx, req)
	if err != nil {
		return nil, err
	}

	pdf, err := s.render(ctx, doc)
	if err != nil {
		return nil, err
	}

	url, err := s.publish(ctx, req.ID, pdf)
	if err != nil {
		return nil, err
	}

	return &IssueResult{Message: MessageCreated, URL: url}, nil
}

// ensureRecord writes the record on first issuance. An existing record is never touched.
func (s *certificateService) ensureRecord(ctx context.Context, req model.CertificateRequest) error {
	ctx, span := tracer.Start(ctx, "certificate.ensureRecord")
	defer span.End()

	if _, err := s.repo.FindByID(ctx, req.ID); err == nil {
		span.SetAttributes(attribute.Bool("certificate.record_created", false))
		s.logger.DebugContext(ctx, "certificate record exists", "certificate_id", req.ID)
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: lookup: %w", ErrStoreFailure, err)
	}

	created, err := s.repo.CreateIfAbsent(ctx, &model.Certificate{
		ID:        req.ID,
		Name:      req.Name,
		Grade:     req.Grade,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: insert: %w", ErrStoreFailure, err)
	}
	span.SetAttributes(attribute.Bool("certificate.record_created", created))
	if created {
		s.metrics.recordCreated()
	} else {
		s.logger.InfoContext(ctx, "certificate record exists", "certificate_id", req.ID, "reason", "record_exists")
	}
	return nil
}

func (s *certificateService) bind(ctx context.Context, req model.CertificateRequest) (string, error) {
	_, span := tracer.Start(ctx, "certificate.bind")
	defer span.End()

	doc, err := s.binder.Bind(template.Context{
		ID:    req.ID,
		Name:  req.Name,
		Grade: req.Grade,
		Date:  s.now().In(s.loc).Format(template.DateLayout),
		Medal: s.binder.Medal(),
	})
	if err != nil {
		return "", ensureKind(ErrTemplateUnavailable, err)
	}
	return doc, nil
}

func (s *certificateService) render(ctx context.Context, doc string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "certificate.render")
	defer span.End()

	start := time.Now()
	pdf, err := s.renderer.Render(ctx, doc)
	s.metrics.observeRender(time.Since(start).Seconds())
	if err != nil {
		return nil, ensureKind(ErrRenderFailure, err)
	}
	span.SetAttributes(attribute.Int("certificate.pdf_bytes", len(pdf)))
	return pdf, nil
}

func (s *certificateService) publish(ctx context.Context, id string, pdf []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "certificate.publish")
	defer span.End()

	url, err := s.publisher.Publish(ctx, id, pdf)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}
	return url, nil
}

func (s *certificateService) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "certificate.Verify", trace.WithAttributes(attribute.String("certificate.id", id)))
	defer span.End()

	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Message: MessageCreated, Name: cert.Name, URL: s.publisher.URL(id)}, nil
}

func (s *certificateService) Open(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	ctx, span := tracer.Start(ctx, "certificate.Open", trace.WithAttributes(attribute.String("certificate.id", id)))
	defer span.End()

	if _, err := s.find(ctx, id); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.publisher.Open(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, fmt.Errorf("%w: %s", ErrArtifactMissing, id)
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("%w: open artifact: %w", ErrPublishFailure, err)
	}
	return rc, info, nil
}

// find maps a lookup onto ErrNotFound/ErrStoreFailure. IDs that could never be issued are not looked up.
func (s *certificateService) find(ctx context.Context, id string) (*model.Certificate, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: lookup: %w", ErrStoreFailure, err)
	}
	return cert, nil
}
