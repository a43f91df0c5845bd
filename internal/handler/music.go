package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/service"
	"github.com/resona/api/pkg/response"
)

type MusicHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewMusicHandler(svc *service.JobService, v *validator.Validate) *MusicHandler {
	return &MusicHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/music/generate
func (h *MusicHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateMusicRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	input := &model.JobInput{
		Prompt: req.Prompt,
		Lyrics: req.Lyrics,
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), model.JobKindMusicGeneration, req.Provider, input, req.Title)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}
