package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/resona/api/internal/apperr"
	"github.com/resona/api/pkg/response"
)

// formatValidationErrors formats validator errors for response
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

// writeError maps a service error onto the wire envelope by its kind.
func writeError(c *fiber.Ctx, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return response.ValidationError(c, err.Error(), nil)
	case apperr.KindCredential:
		return response.CredentialError(c, err.Error())
	case apperr.KindAuthz:
		return response.Forbidden(c, err.Error())
	case apperr.KindNotFound:
		return response.NotFound(c, err.Error())
	case apperr.KindNotConfigured:
		return response.NotConfigured(c, err.Error())
	case apperr.KindAlreadyStored:
		return response.AlreadyStored(c, err.Error())
	case apperr.KindTransient:
		return response.ProviderError(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
