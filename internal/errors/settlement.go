package errors

var (
	ErrAccountNotEligible = &DomainError{
		Code:    "ACCOUNT_NOT_ELIGIBLE",
		Message: "vendor settlement account is not verified for payouts",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive integer in minor currency units",
	}
	ErrCommissionOutOfRange = &DomainError{
		Code:    "COMMISSION_OUT_OF_RANGE",
		Message: "commission percentage must be between 0 and 100",
	}
	ErrPayoutNotFound = &DomainError{
		Code:    "PAYOUT_NOT_FOUND",
		Message: "payout not found",
	}
	ErrVendorNotFound = &DomainError{
		Code:    "VENDOR_NOT_FOUND",
		Message: "vendor settlement account not found",
	}
	ErrRemittanceMismatch = &DomainError{
		Code:    "REMITTANCE_MISMATCH",
		Message: "remittance amount does not match the order's expected collectible amount",
	}
	ErrOrderNotCollectible = &DomainError{
		Code:    "ORDER_NOT_COLLECTIBLE",
		Message: "no expected collectible amount is recorded for this order",
	}
)
