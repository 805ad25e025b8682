package middleware

import (
	"errors"
	"net/http"

	"pagequiz/internal/domain"
	"pagequiz/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandler is a centralized error handling middleware
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log := logger.Get()

		// Handle domain errors
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			statusCode := mapDomainErrorToHTTPStatus(domainErr)

			log.Error("Domain error occurred",
				zap.String("code", string(domainErr.Code)),
				zap.String("message", domainErr.Message),
				zap.Int("status", statusCode),
				zap.Error(domainErr.Cause),
			)

			response := ErrorResponse{
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Status:  statusCode,
			}
			if len(domainErr.Context) > 0 {
				response.Details = domainErr.Context
			}
			return c.Status(statusCode).JSON(response)
		}

		// Typed provider/parser errors that escaped without a domain wrapper
		var providerErr *domain.ProviderHTTPError
		if errors.As(err, &providerErr) {
			return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
				Code:    string(domain.CodeProviderHTTP),
				Message: providerErr.Error(),
				Status:  http.StatusBadGateway,
			})
		}
		var malformedErr *domain.MalformedResponseError
		if errors.As(err, &malformedErr) {
			return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
				Code:    string(domain.CodeMalformedResponse),
				Message: malformedErr.Error(),
				Status:  http.StatusBadGateway,
			})
		}
		var unknownErr *domain.UnknownProviderError
		if errors.As(err, &unknownErr) {
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Code:    string(domain.CodeUnknownProvider),
				Message: unknownErr.Error(),
				Status:  http.StatusInternalServerError,
			})
		}

		// Handle fiber errors
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			log.Warn("Fiber error occurred",
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		// Handle unknown errors
		log.Error("Unknown error occurred",
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.CodeInternal),
			Message: "Internal server error",
			Status:  http.StatusInternalServerError,
		})
	}
}

// mapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func mapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.CodeNotFound, domain.CodeNoActiveQuiz:
		return http.StatusNotFound
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeInsufficientContent:
		return http.StatusUnprocessableEntity
	case domain.CodeGenerationInFlight, domain.CodeAnswerRequired:
		return http.StatusConflict
	case domain.CodeProviderHTTP, domain.CodeMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
