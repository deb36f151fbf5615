// Package split computes the decomposition of a gross payment into vendor,
// commission and tax portions. Pure arithmetic, no I/O.
package split

import (
	"errors"
	"math"
)

var (
	ErrNegativeGross        = errors.New("gross amount must not be negative")
	ErrCommissionOutOfRange = errors.New("commission percentage must be between 0 and 100")
	ErrSplitExceedsGross    = errors.New("commission and tax exceed gross amount")
)

// Config carries the withholding-tax tiers. The lower rate applies when a
// legal tax identifier is on file for the vendor; amounts below MinAmount
// skip withholding entirely.
type Config struct {
	RateWithTaxID float64
	RateDefault   float64
	MinAmount     int64
}

// Breakdown is the result of splitting a gross amount. All values are
// integer minor currency units and always satisfy
// Commission + Tax + Net == Gross.
type Breakdown struct {
	GrossAmount      int64
	CommissionAmount int64
	TaxAmount        int64
	NetAmount        int64
}

// Calculate splits gross into commission, withholding tax and net payout.
// Amounts are floored, never rounded up, so the platform's take is never
// inflated by rounding. The vendor-favoring remainder lands in NetAmount.
func Calculate(gross int64, commissionPct float64, withholding, hasTaxID bool, cfg Config) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, ErrNegativeGross
	}
	if math.IsNaN(commissionPct) || math.IsInf(commissionPct, 0) ||
		commissionPct < 0 || commissionPct > 100 {
		return Breakdown{}, ErrCommissionOutOfRange
	}

	commission := floorShare(gross, commissionPct)

	var tax int64
	if withholding && gross >= cfg.MinAmount {
		rate := cfg.RateDefault
		if hasTaxID {
			rate = cfg.RateWithTaxID
		}
		tax = floorShare(gross, rate)
	}

	net := gross - commission - tax
	if net < 0 {
		return Breakdown{}, ErrSplitExceedsGross
	}

	return Breakdown{
		GrossAmount:      gross,
		CommissionAmount: commission,
		TaxAmount:        tax,
		NetAmount:        net,
	}, nil
}

// floorShare computes floor(gross * pct / 100) in integer arithmetic. The
// percentage is floored to basis-point precision so a finer rate can only
// lower the share, never raise it. The epsilon absorbs the binary
// representation error of rates that are exact in decimal (0.29 * 100 is
// 28.999...96 as a float64 but means 29 bps).
func floorShare(gross int64, pct float64) int64 {
	bps := int64(math.Floor(pct*100 + 1e-6))
	return gross * bps / 10000
}
