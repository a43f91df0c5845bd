package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/service"
	"github.com/resona/api/pkg/response"
)

type JobsHandler struct {
	service *service.JobService
}

func NewJobsHandler(svc *service.JobService) *JobsHandler {
	return &JobsHandler{service: svc}
}

// List handles GET /api/jobs
func (h *JobsHandler) List(c *fiber.Ctx) error {
	filter := model.ListFilter{
		Kind:          model.JobKind(c.Query("kind")),
		FavoritesOnly: c.QueryBool("favorites"),
		Limit:         c.QueryInt("limit", 50),
	}

	if filter.Kind != "" {
		valid := false
		for _, k := range model.ValidJobKinds {
			if filter.Kind == k {
				valid = true
				break
			}
		}
		if !valid {
			return response.ValidationError(c, "Unknown job kind", nil)
		}
	}

	result, err := h.service.List(c.Context(), middleware.GetUserID(c), filter)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Active handles GET /api/jobs/active
func (h *JobsHandler) Active(c *fiber.Ctx) error {
	jobs, err := h.service.Active(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, fiber.Map{"jobs": jobs})
}

// Status handles GET /api/jobs/:jobId/status
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.CheckStatus(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Favorite handles POST /api/jobs/:jobId/favorite
func (h *JobsHandler) Favorite(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.ToggleFavorite(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Store handles POST /api/jobs/:jobId/store
func (h *JobsHandler) Store(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.MigrateToDurable(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Delete handles DELETE /api/jobs/:jobId
func (h *JobsHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.service.Delete(c.Context(), middleware.GetUserID(c), jobID); err != nil {
		return writeError(c, err)
	}

	return response.OK(c, model.DeleteResponse{Success: true, JobID: jobID})
}
