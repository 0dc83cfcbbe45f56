package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slaptrapper/distribution-api/internal/middleware"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/service"
	"github.com/slaptrapper/distribution-api/pkg/response"
)

type ReleaseHandler struct {
	service   *service.ReleaseService
	stats     *service.StatsService
	validator *validator.Validate
}

func NewReleaseHandler(svc *service.ReleaseService, stats *service.StatsService, v *validator.Validate) *ReleaseHandler {
	return &ReleaseHandler{
		service:   svc,
		stats:     stats,
		validator: v,
	}
}

// Submit handles POST /api/distributions
func (h *ReleaseHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Missing required fields", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserEmail(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, result)
}

// Express handles POST /api/distributions/:id/express
func (h *ReleaseHandler) Express(c *fiber.Ctx) error {
	releaseID := c.Params("id")
	if releaseID == "" {
		return response.ValidationError(c, "Distribution ID is required", nil)
	}

	result, err := h.service.ExpressProcess(c.Context(), middleware.GetUserEmail(c), releaseID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, result)
}

// Advance handles POST /api/distributions/:id/advance
func (h *ReleaseHandler) Advance(c *fiber.Ctx) error {
	releaseID := c.Params("id")
	if releaseID == "" {
		return response.ValidationError(c, "Distribution ID is required", nil)
	}

	// Ownership gate before the transition runs.
	if _, err := h.service.GetOwned(c.Context(), middleware.GetUserEmail(c), releaseID); err != nil {
		return serviceError(c, err)
	}

	result, err := h.service.AdvanceToReady(c.Context(), releaseID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Promote handles POST /api/distributions/:id/promote (admin only)
func (h *ReleaseHandler) Promote(c *fiber.Ctx) error {
	releaseID := c.Params("id")
	if releaseID == "" {
		return response.ValidationError(c, "Distribution ID is required", nil)
	}

	result, err := h.service.Promote(c.Context(), middleware.GetUserRole(c), releaseID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Status handles GET /api/distributions/:id/status
func (h *ReleaseHandler) Status(c *fiber.Ctx) error {
	releaseID := c.Params("id")
	if releaseID == "" {
		return response.ValidationError(c, "Distribution ID is required", nil)
	}

	release, err := h.service.GetOwned(c.Context(), middleware.GetUserEmail(c), releaseID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, h.stats.DeliveryStatus(c.Context(), release))
}

// SyncStats handles POST /api/distributions/stats/sync
func (h *ReleaseHandler) SyncStats(c *fiber.Ctx) error {
	result, err := h.stats.SyncStats(c.Context(), middleware.GetUserEmail(c))
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}
