package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"certapi/internal/publish"
	"certapi/internal/service"
)

const healthTimeout = 2 * time.Second

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when no record database is configured; /health then reports the process only.
func RegisterRoutes(app *fiber.App, db *sql.DB, certSvc service.CertificateService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/certificates", IssueCertificate(certSvc))
	app.Get("/certificates/:id", VerifyCertificate(certSvc))
	app.Get("/certificates/:id/pdf", DownloadCertificate(certSvc))
}

// HealthCheck checks record database connectivity.
//
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// IssueCertificate records, renders and publishes a certificate.
//
// @Summary Issue a certificate
// @Tags certificates
// @Accept json
// @Produce json
// @Param request body model.CertificateRequest true "Certificate holder"
// @Success 201 {object} service.IssueResult
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /certificates [post]
func IssueCertificate(certSvc service.CertificateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := service.DecodeRequest(c.Body())
		if err != nil {
			return writeServiceError(c, err)
		}

		res, err := certSvc.Issue(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// VerifyCertificate reports whether a certificate was issued.
//
// @Summary Verify a certificate
// @Tags certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} service.VerifyResult
// @Failure 400 {object} messagePayload
// @Failure 500 {object} errorPayload
// @Router /certificates/{id} [get]
func VerifyCertificate(certSvc service.CertificateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := certSvc.Verify(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// DownloadCertificate streams the published PDF of an issued certificate.
//
// @Summary Download a certificate PDF
// @Tags certificates
// @Produce application/pdf
// @Param id path string true "Certificate ID"
// @Success 200 {file} file
// @Failure 400 {object} messagePayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /certificates/{id}/pdf [get]
func DownloadCertificate(certSvc service.CertificateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		rc, info, err := certSvc.Open(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = publish.ContentTypePDF
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, `inline; filename="`+publish.Key(id)+`"`)
		// fasthttp closes rc once the body has been written.
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}
