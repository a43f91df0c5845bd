package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/service"
	"github.com/resona/api/pkg/response"
)

type VoiceHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewVoiceHandler(svc *service.JobService, v *validator.Validate) *VoiceHandler {
	return &VoiceHandler{
		service:   svc,
		validator: v,
	}
}

// CreateClone handles POST /api/voice/clones
func (h *VoiceHandler) CreateClone(c *fiber.Ctx) error {
	var req model.CreateVoiceCloneRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	input := &model.JobInput{
		Name:                req.Name,
		Description:         req.Description,
		AudioURL:            req.AudioURL,
		NoiseReduction:      req.NoiseReduction,
		VolumeNormalization: req.VolumeNormalization,
		PreviewText:         req.PreviewText,
		ReferenceText:       req.ReferenceText,
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), model.JobKindVoiceClone, req.Provider, input, req.Name)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// StartConversion handles POST /api/voice/conversions
func (h *VoiceHandler) StartConversion(c *fiber.Ctx) error {
	var req model.StartVoiceConversionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	input := &model.JobInput{
		SourceGenerationID: req.SourceGenerationID,
		TargetSinger:       req.TargetSinger,
		RVCModelURL:        req.RVCModelURL,
		RVCModelName:       req.RVCModelName,
		PitchShift:         req.PitchShift,
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), model.JobKindVoiceConversion, req.Provider, input, req.Title)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// ListSingers handles GET /api/voice/singers
func (h *VoiceHandler) ListSingers(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"singers": h.service.PresetSingers()})
}
