package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slaptrapper/distribution-api/internal/middleware"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/service"
	"github.com/slaptrapper/distribution-api/pkg/response"
)

type ReconcileHandler struct {
	service   *service.ReconcileService
	validator *validator.Validate
}

func NewReconcileHandler(svc *service.ReconcileService, v *validator.Validate) *ReconcileHandler {
	return &ReconcileHandler{
		service:   svc,
		validator: v,
	}
}

// Reconcile handles POST /api/reconciliation
func (h *ReconcileHandler) Reconcile(c *fiber.Ctx) error {
	var req model.ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid earnings data format", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Invalid earnings data format", formatValidationErrors(err))
	}

	result, err := h.service.Reconcile(c.Context(), middleware.GetUserEmail(c), req.Earnings)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}
