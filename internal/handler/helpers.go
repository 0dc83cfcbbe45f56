package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// serviceError maps the error taxonomy onto HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	var authErr *apperr.AuthError
	var validationErr *apperr.ValidationError
	var notFoundErr *apperr.NotFoundError
	var invalidStateErr *apperr.InvalidStateError
	var externalErr *apperr.ExternalServiceError
	var timeoutErr *apperr.JobTimeoutError
	var noMatchErr *apperr.NoMatchError
	var conflictErr *apperr.ConflictError

	switch {
	case errors.As(err, &authErr):
		return response.Forbidden(c, authErr.Message)
	case errors.As(err, &validationErr):
		return response.ValidationError(c, validationErr.Message, validationErr.Fields)
	case errors.As(err, &notFoundErr):
		return response.NotFound(c, notFoundErr.Error())
	case errors.As(err, &invalidStateErr):
		return response.InvalidState(c, invalidStateErr.Error())
	case errors.As(err, &timeoutErr):
		return response.JobTimeout(c, timeoutErr.Error(), fiber.Map{"jobId": timeoutErr.JobID})
	case errors.As(err, &noMatchErr):
		return response.NoMatch(c, noMatchErr.Error())
	case errors.As(err, &conflictErr):
		return response.Conflict(c, conflictErr.Error())
	case errors.As(err, &externalErr):
		return response.ExternalError(c, externalErr.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
