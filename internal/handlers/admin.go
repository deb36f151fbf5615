package handlers

import (
	"strconv"

	"bazaar/internal/repositories"
	"bazaar/internal/utils/pagination"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the escalation queue raised by the retry scheduler.
type AdminHandler struct {
	alerts repositories.AlertRepository
}

func NewAdminHandler(alerts repositories.AlertRepository) *AdminHandler {
	return &AdminHandler{alerts: alerts}
}

func (h *AdminHandler) ListAlerts(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	alerts, total, err := h.alerts.ListOpen(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "Failed to list alerts")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, alerts))
}

func (h *AdminHandler) AcknowledgeAlert(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("alertID"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "Invalid alert id")
	}

	if err := h.alerts.Acknowledge(c.Context(), uint(id), operatorName(c)); err != nil {
		return response.ServerError(c, "Failed to acknowledge alert")
	}
	return response.Success(c, fiber.Map{"acknowledged": id})
}
