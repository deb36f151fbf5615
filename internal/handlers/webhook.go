package handlers

import (
	"errors"
	"log/slog"

	"bazaar/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	webhooks webhook.Service
}

func NewWebhookHandler(webhooks webhook.Service) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// HandleGatewayWebhook receives gateway notifications. Signature failures
// are rejected; everything else is acknowledged with 200 so the gateway
// does not disable the endpoint. Handler failures are recorded against the
// event and escalated by the service, never surfaced to the gateway.
func (h *WebhookHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Webhook-Signature")

	err := h.webhooks.Handle(c.Context(), c.BodyRaw(), signature)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
		}
		slog.Error("webhook processing failed", "error", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
