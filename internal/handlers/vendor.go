package handlers

import (
	"errors"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/services/vendor"
	"bazaar/internal/utils/pagination"
	"bazaar/internal/utils/response"
	"bazaar/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type VendorHandler struct {
	vendors vendor.Service
}

func NewVendorHandler(vendors vendor.Service) *VendorHandler {
	return &VendorHandler{vendors: vendors}
}

// operatorName pulls the acting operator out of the authenticated claims.
func operatorName(c *fiber.Ctx) string {
	claims, ok := c.Locals("claims").(*models.ServiceClaims)
	if !ok || claims == nil {
		return "unknown"
	}
	return claims.Subject
}

func (h *VendorHandler) CreateAccount(c *fiber.Ctx) error {
	var input struct {
		VendorID              string  `json:"vendor_id" validate:"required"`
		BusinessName          string  `json:"business_name" validate:"required"`
		FundAccountID         string  `json:"fund_account_id" validate:"required"`
		CommissionPercentage  float64 `json:"commission_percentage" validate:"gte=0,lte=100"`
		AutoPayoutEnabled     *bool   `json:"auto_payout_enabled"`
		WithholdingApplicable *bool   `json:"withholding_applicable"`
		TaxID                 string  `json:"tax_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	autoPayout := true
	if input.AutoPayoutEnabled != nil {
		autoPayout = *input.AutoPayoutEnabled
	}
	withholding := true
	if input.WithholdingApplicable != nil {
		withholding = *input.WithholdingApplicable
	}

	account, err := h.vendors.CreateAccount(c.Context(), vendor.CreateAccountInput{
		VendorID:              input.VendorID,
		BusinessName:          input.BusinessName,
		FundAccountID:         input.FundAccountID,
		CommissionPercentage:  input.CommissionPercentage,
		AutoPayoutEnabled:     autoPayout,
		WithholdingApplicable: withholding,
		TaxID:                 input.TaxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, vendor.ErrAccountExists):
			return response.Conflict(c, "Settlement account already exists for this vendor")
		case errors.Is(err, domainerrors.ErrCommissionOutOfRange):
			return response.Domain(c, fiber.StatusBadRequest, domainerrors.ErrCommissionOutOfRange)
		default:
			return response.ServerError(c, "Failed to create settlement account")
		}
	}
	return response.Created(c, account)
}

func (h *VendorHandler) GetAccount(c *fiber.Ctx) error {
	account, err := h.vendors.GetAccount(c.Context(), c.Params("vendorID"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrVendorNotFound) {
			return response.NotFound(c, "Settlement account not found")
		}
		return response.ServerError(c, "Failed to get settlement account")
	}
	return response.Success(c, account)
}

func (h *VendorHandler) StartReview(c *fiber.Ctx) error {
	account, err := h.vendors.StartReview(c.Context(), c.Params("vendorID"), operatorName(c))
	return h.renderTransition(c, account, err)
}

func (h *VendorHandler) Approve(c *fiber.Ctx) error {
	account, err := h.vendors.Approve(c.Context(), c.Params("vendorID"), operatorName(c))
	return h.renderTransition(c, account, err)
}

func (h *VendorHandler) Reject(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if fields := validation.Struct(input); fields != nil {
		return response.ValidationError(c, fields)
	}

	account, err := h.vendors.Reject(c.Context(), c.Params("vendorID"), operatorName(c), input.Reason)
	return h.renderTransition(c, account, err)
}

func (h *VendorHandler) Suspend(c *fiber.Ctx) error {
	account, err := h.vendors.Suspend(c.Context(), c.Params("vendorID"), operatorName(c))
	return h.renderTransition(c, account, err)
}

func (h *VendorHandler) ListAccounts(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	accounts, total, err := h.vendors.ListByStatus(c.Context(), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "Failed to list settlement accounts")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, accounts))
}

func (h *VendorHandler) renderTransition(c *fiber.Ctx, account *models.VendorSettlementAccount, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrVendorNotFound):
			return response.NotFound(c, "Settlement account not found")
		case errors.Is(err, vendor.ErrRejectedIsTerminal):
			return response.Conflict(c, "Rejected accounts are terminal; onboard again with a new account")
		case errors.Is(err, vendor.ErrIllegalReview), errors.Is(err, vendor.ErrNotSuspendable):
			return response.Conflict(c, err.Error())
		default:
			return response.ServerError(c, "Failed to update settlement account")
		}
	}
	return response.Success(c, account)
}
