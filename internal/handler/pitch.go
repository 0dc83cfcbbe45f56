package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slaptrapper/distribution-api/internal/middleware"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/service"
	"github.com/slaptrapper/distribution-api/pkg/response"
)

type PitchHandler struct {
	service   *service.PitchService
	validator *validator.Validate
}

func NewPitchHandler(svc *service.PitchService, v *validator.Validate) *PitchHandler {
	return &PitchHandler{
		service:   svc,
		validator: v,
	}
}

// BuildCampaign handles POST /api/pitching/campaigns
func (h *PitchHandler) BuildCampaign(c *fiber.Ctx) error {
	var req model.BuildCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.BuildCampaign(c.Context(), middleware.GetUserEmail(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, result)
}
