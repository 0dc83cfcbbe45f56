package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slaptrapper/distribution-api/internal/middleware"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/service"
	"github.com/slaptrapper/distribution-api/pkg/response"
)

type MasteringHandler struct {
	service   *service.MasteringService
	validator *validator.Validate
}

func NewMasteringHandler(svc *service.MasteringService, v *validator.Validate) *MasteringHandler {
	return &MasteringHandler{
		service:   svc,
		validator: v,
	}
}

// Master handles POST /api/mastering. The request blocks while the
// external job is polled, up to the configured attempt budget.
func (h *MasteringHandler) Master(c *fiber.Ctx) error {
	var req model.MasterAudioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.MasterAudio(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Status handles GET /api/mastering/:jobId
func (h *MasteringHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, job)
}

// SubmitOrder handles POST /api/mastering/orders
func (h *MasteringHandler) SubmitOrder(c *fiber.Ctx) error {
	var req model.MasteringOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Missing required fields", formatValidationErrors(err))
	}

	result, err := h.service.SubmitOrder(c.Context(), middleware.GetUserEmail(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, result)
}
