package handlers

import (
	"errors"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/services/cod"
	"bazaar/internal/utils/pagination"
	"bazaar/internal/utils/response"
	"bazaar/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CODHandler struct {
	cod  cod.Service
	risk cod.RiskScorer
}

func NewCODHandler(codService cod.Service, risk cod.RiskScorer) *CODHandler {
	return &CODHandler{cod: codService, risk: risk}
}

// CheckAvailability is called by the order service at checkout time.
func (h *CODHandler) CheckAvailability(c *fiber.Ctx) error {
	var input struct {
		CustomerID string `json:"customer_id" validate:"required"`
		Pincode    string `json:"pincode" validate:"required,pincode"`
		Amount     int64  `json:"amount" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	availability, err := h.cod.ValidateCODAvailability(c.Context(), input.CustomerID, input.Pincode, input.Amount)
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidAmount) {
			return response.Domain(c, fiber.StatusBadRequest, domainerrors.ErrInvalidAmount)
		}
		return response.ServerError(c, "Failed to check COD availability")
	}
	return response.Success(c, availability)
}

// RecordRemittance ingests a logistics partner's collected-cash report.
func (h *CODHandler) RecordRemittance(c *fiber.Ctx) error {
	var input struct {
		OrderID          string `json:"order_id" validate:"required"`
		VendorID         string `json:"vendor_id" validate:"required"`
		Amount           int64  `json:"amount" validate:"required,gt=0"`
		LogisticsPartner string `json:"logistics_partner" validate:"required"`
		Notes            string `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	rem, err := h.cod.RecordRemittance(c.Context(), cod.RemittanceInput{
		OrderID:          input.OrderID,
		VendorID:         input.VendorID,
		Amount:           input.Amount,
		LogisticsPartner: input.LogisticsPartner,
		Notes:            input.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrRemittanceMismatch):
			// The mismatched record is stored; surface it with the error.
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": domainerrors.ErrRemittanceMismatch.Message,
				"code":  domainerrors.ErrRemittanceMismatch.Code,
				"data":  rem,
			})
		case errors.Is(err, domainerrors.ErrOrderNotCollectible):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": domainerrors.ErrOrderNotCollectible.Message,
				"code":  domainerrors.ErrOrderNotCollectible.Code,
				"data":  rem,
			})
		case errors.Is(err, domainerrors.ErrInvalidAmount):
			return response.Domain(c, fiber.StatusBadRequest, domainerrors.ErrInvalidAmount)
		default:
			return response.ServerError(c, "Failed to record remittance")
		}
	}
	return response.Created(c, rem)
}

func (h *CODHandler) GetRemittance(c *fiber.Ctx) error {
	rem, err := h.cod.GetRemittance(c.Context(), c.Params("remittanceID"))
	if err != nil {
		return response.NotFound(c, "Remittance not found")
	}
	return response.Success(c, rem)
}

func (h *CODHandler) ListRemittances(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	rems, total, err := h.cod.ListRemittances(c.Context(), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "Failed to list remittances")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, rems))
}

func (h *CODHandler) GetRiskProfile(c *fiber.Ctx) error {
	profile, err := h.risk.GetProfile(c.Context(), c.Params("customerID"))
	if err != nil {
		return response.ServerError(c, "Failed to get risk profile")
	}
	return response.Success(c, profile)
}

// RecordOrderOutcome lets the order service report delivery outcomes that
// feed the risk score.
func (h *CODHandler) RecordOrderOutcome(c *fiber.Ctx) error {
	var input struct {
		CustomerID string `json:"customer_id" validate:"required"`
		Outcome    string `json:"outcome" validate:"required,oneof=success return failure"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	profile, err := h.risk.RecordOrderOutcome(c.Context(), input.CustomerID, input.Outcome)
	if err != nil {
		if errors.Is(err, cod.ErrUnknownOutcome) {
			return response.BadRequest(c, err.Error())
		}
		return response.ServerError(c, "Failed to record order outcome")
	}
	return response.Success(c, profile)
}

func (h *CODHandler) AddPincodes(c *fiber.Ctx) error {
	var input struct {
		Pincodes []string `json:"pincodes" validate:"required,min=1,dive,pincode"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	if err := h.cod.AddServiceablePincodes(c.Context(), input.Pincodes...); err != nil {
		return response.ServerError(c, "Failed to add pincodes")
	}
	return response.Success(c, fiber.Map{"added": len(input.Pincodes)})
}

func (h *CODHandler) RemovePincodes(c *fiber.Ctx) error {
	var input struct {
		Pincodes []string `json:"pincodes" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	if err := h.cod.RemoveServiceablePincodes(c.Context(), input.Pincodes...); err != nil {
		return response.ServerError(c, "Failed to remove pincodes")
	}
	return response.Success(c, fiber.Map{"removed": len(input.Pincodes)})
}
