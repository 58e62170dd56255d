package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"certapi/internal/http/middleware"
	"certapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messagePayload is the bare body returned for unknown certificates.
type messagePayload struct {
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "MALFORMED_INPUT", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

func writeInvalidCertificate(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(messagePayload{Message: service.MessageInvalid})
}

// writeServiceError maps a service error kind onto its HTTP response.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrMalformedInput):
		return writeError(c, fiber.StatusBadRequest, "MALFORMED_INPUT", "request body must be {id, name, grade} with non-empty values")
	case errors.Is(err, service.ErrNotFound):
		return writeInvalidCertificate(c)
	case errors.Is(err, service.ErrIssuanceInProgress):
		return writeError(c, fiber.StatusConflict, "ISSUANCE_IN_PROGRESS", "certificate issuance already in progress")
	case errors.Is(err, service.ErrArtifactMissing):
		return writeError(c, fiber.StatusNotFound, "ARTIFACT_NOT_FOUND", "certificate file not found")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
