package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/store"
	"github.com/resona/api/pkg/response"
)

const redacted = "********"

type SettingsHandler struct {
	store     *store.Store
	validator *validator.Validate
}

func NewSettingsHandler(st *store.Store, v *validator.Validate) *SettingsHandler {
	return &SettingsHandler{
		store:     st,
		validator: v,
	}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.store.GetSettings(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to load settings")
	}

	return response.OK(c, model.SettingsResponse{
		FalConfigured:       settings.FalAPIKey != "",
		MiniMaxConfigured:   settings.MiniMaxAPIKey != "",
		ReplicateConfigured: settings.ReplicateAPIKey != "",
		Storage:             redactStorage(settings.Storage),
		PlatformAccess:      settings.PlatformAccess,
	})
}

// UpdateKeys handles PUT /api/settings/keys
func (h *SettingsHandler) UpdateKeys(c *fiber.Ctx) error {
	var req model.UpdateAPIKeysRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.store.UpdateAPIKeys(c.Context(), middleware.GetUserID(c), &req); err != nil {
		return response.ServiceError(c, "Failed to update API keys")
	}

	return h.Get(c)
}

// UpdateStorage handles PUT /api/settings/storage
func (h *SettingsHandler) UpdateStorage(c *fiber.Ctx) error {
	var req model.StorageSettings
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	switch req.Kind {
	case model.StorageKindBunny:
		if req.Bunny == nil {
			return response.ValidationError(c, "Bunny settings are required", nil)
		}
		if err := h.validator.Struct(req.Bunny); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	case model.StorageKindS3:
		if req.S3 == nil {
			return response.ValidationError(c, "S3 settings are required", nil)
		}
		if err := h.validator.Struct(req.S3); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	if err := h.store.UpdateStorageSettings(c.Context(), middleware.GetUserID(c), &req); err != nil {
		return response.ServiceError(c, "Failed to update storage settings")
	}

	return h.Get(c)
}

// DeleteStorage handles DELETE /api/settings/storage
func (h *SettingsHandler) DeleteStorage(c *fiber.Ctx) error {
	if err := h.store.UpdateStorageSettings(c.Context(), middleware.GetUserID(c), nil); err != nil {
		return response.ServiceError(c, "Failed to clear storage settings")
	}

	return response.NoContent(c)
}

// redactStorage masks secrets so stored values never round-trip to clients.
func redactStorage(s *model.StorageSettings) *model.StorageSettings {
	if s == nil {
		return nil
	}
	out := *s
	if s.Bunny != nil {
		b := *s.Bunny
		if b.APIKey != "" {
			b.APIKey = redacted
		}
		out.Bunny = &b
	}
	if s.S3 != nil {
		s3 := *s.S3
		if s3.SecretAccessKey != "" {
			s3.SecretAccessKey = redacted
		}
		out.S3 = &s3
	}
	return &out
}
