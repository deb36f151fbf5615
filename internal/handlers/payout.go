package handlers

import (
	"errors"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/services/payout"
	"bazaar/internal/utils/pagination"
	"bazaar/internal/utils/response"
	"bazaar/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type PayoutHandler struct {
	payouts payout.Service
}

func NewPayoutHandler(payouts payout.Service) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// CreatePayout opens a settlement directly, for callers that reconcile
// payments themselves. The webhook path is the usual entry point.
func (h *PayoutHandler) CreatePayout(c *fiber.Ctx) error {
	var input struct {
		VendorID    string `json:"vendor_id" validate:"required"`
		OrderID     string `json:"order_id" validate:"required"`
		PaymentID   string `json:"payment_id"`
		GrossAmount int64  `json:"gross_amount" validate:"required,gt=0"`
		Currency    string `json:"currency"`
		Hold        bool   `json:"hold"`
		HoldReason  string `json:"hold_reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	p, err := h.payouts.CreatePayout(c.Context(), payout.CreatePayoutInput{
		VendorID:    input.VendorID,
		OrderID:     input.OrderID,
		PaymentID:   input.PaymentID,
		GrossAmount: input.GrossAmount,
		Currency:    input.Currency,
		Hold:        input.Hold,
		HoldReason:  input.HoldReason,
	})
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Created(c, p)
}

func (h *PayoutHandler) GetPayout(c *fiber.Ctx) error {
	p, err := h.payouts.GetPayout(c.Context(), c.Params("payoutID"))
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) InitiateTransfer(c *fiber.Ctx) error {
	p, err := h.payouts.InitiateTransfer(c.Context(), c.Params("payoutID"))
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) RetryPayout(c *fiber.Ctx) error {
	p, err := h.payouts.RetryPayout(c.Context(), c.Params("payoutID"))
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) HoldPayout(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	p, err := h.payouts.HoldPayout(c.Context(), c.Params("payoutID"), input.Reason)
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) ReleasePayout(c *fiber.Ctx) error {
	p, err := h.payouts.ReleasePayout(c.Context(), c.Params("payoutID"))
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) ReversePayout(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	p, err := h.payouts.ReversePayout(c.Context(), c.Params("payoutID"), input.Reason)
	if err != nil {
		return h.renderError(c, err)
	}
	return response.Success(c, p)
}

func (h *PayoutHandler) ListVendorPayouts(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	payouts, total, err := h.payouts.GetPayoutsByStatus(
		c.Context(), c.Params("vendorID"), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "Failed to list payouts")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, payouts))
}

func (h *PayoutHandler) GetVendorSummary(c *fiber.Ctx) error {
	summary, err := h.payouts.GetPayoutSummary(c.Context(), c.Params("vendorID"))
	if err != nil {
		return response.ServerError(c, "Failed to get payout summary")
	}
	return response.Success(c, summary)
}

func (h *PayoutHandler) renderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrPayoutNotFound):
		return response.NotFound(c, "Payout not found")
	case errors.Is(err, domainerrors.ErrVendorNotFound):
		return response.Domain(c, fiber.StatusNotFound, domainerrors.ErrVendorNotFound)
	case errors.Is(err, domainerrors.ErrAccountNotEligible):
		return response.Domain(c, fiber.StatusUnprocessableEntity, domainerrors.ErrAccountNotEligible)
	case errors.Is(err, domainerrors.ErrInvalidAmount):
		return response.Domain(c, fiber.StatusBadRequest, domainerrors.ErrInvalidAmount)
	case errors.Is(err, domainerrors.ErrCommissionOutOfRange):
		return response.Domain(c, fiber.StatusBadRequest, domainerrors.ErrCommissionOutOfRange)
	case errors.Is(err, payout.ErrPayoutNotPending),
		errors.Is(err, payout.ErrPayoutNotRetryable),
		errors.Is(err, payout.ErrRetryBudgetExhausted),
		errors.Is(err, payout.ErrNotReversible),
		errors.Is(err, payout.ErrNotHeld),
		errors.Is(err, payout.ErrIllegalTransition):
		return response.Conflict(c, err.Error())
	default:
		return response.ServerError(c, "Payout operation failed")
	}
}
