package split

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	RateWithTaxID: 1.0,
	RateDefault:   5.0,
	MinAmount:     250000,
}

func TestCalculate_BasicSplit(t *testing.T) {
	// gross=100000 minor units, commission=10%, no withholding
	b, err := Calculate(100000, 10, false, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), b.CommissionAmount)
	assert.Equal(t, int64(0), b.TaxAmount)
	assert.Equal(t, int64(90000), b.NetAmount)
}

func TestCalculate_SumAlwaysEqualsGross(t *testing.T) {
	grosses := []int64{0, 1, 99, 100, 101, 999, 100000, 250000, 7777777, 1<<40 + 3}
	rates := []float64{0, 0.5, 1, 2.5, 10, 12.5, 33.33, 50, 99.99, 100}

	for _, g := range grosses {
		for _, r := range rates {
			for _, withholding := range []bool{false, true} {
				for _, hasTaxID := range []bool{false, true} {
					b, err := Calculate(g, r, withholding, hasTaxID, testConfig)
					if err == ErrSplitExceedsGross {
						continue
					}
					require.NoError(t, err, "gross=%d rate=%f", g, r)
					assert.Equal(t, g, b.CommissionAmount+b.TaxAmount+b.NetAmount,
						"gross=%d rate=%f withholding=%v", g, r, withholding)
					assert.GreaterOrEqual(t, b.NetAmount, int64(0))
					assert.GreaterOrEqual(t, b.CommissionAmount, int64(0))
					assert.GreaterOrEqual(t, b.TaxAmount, int64(0))
				}
			}
		}
	}
}

func TestCalculate_FloorsNeverRoundUp(t *testing.T) {
	// 10% of 999 is 99.9; the platform takes 99, the vendor keeps the rest.
	b, err := Calculate(999, 10, false, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(99), b.CommissionAmount)
	assert.Equal(t, int64(900), b.NetAmount)

	// Fractional rate at basis-point precision.
	b, err = Calculate(10000, 12.5, false, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), b.CommissionAmount)

	// A rate finer than a basis point floors too. 10.006% of 10000 is
	// 1000.6; taking 1001 would inflate the platform's share.
	b, err = Calculate(10000, 10.006, false, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.CommissionAmount)
	assert.Equal(t, int64(9000), b.NetAmount)

	// Rates that are exact in decimal but inexact in binary still hit their
	// basis point (0.29 * 100 is 28.999... as a float64).
	b, err = Calculate(10000, 0.29, false, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(29), b.CommissionAmount)
}

func TestCalculate_WithholdingTiers(t *testing.T) {
	// Below the minimum threshold no withholding applies.
	b, err := Calculate(100000, 10, true, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.TaxAmount)

	// At or above the threshold: default tier without a tax id.
	b, err = Calculate(300000, 10, true, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), b.TaxAmount) // 5%

	// Lower tier when a tax id is on file.
	b, err = Calculate(300000, 10, true, true, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), b.TaxAmount) // 1%

	// Withholding disabled ignores the threshold entirely.
	b, err = Calculate(300000, 10, false, true, testConfig)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.TaxAmount)
}

func TestCalculate_InvalidInputs(t *testing.T) {
	_, err := Calculate(-1, 10, false, false, testConfig)
	assert.ErrorIs(t, err, ErrNegativeGross)

	for _, rate := range []float64{-0.01, 100.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Calculate(1000, rate, false, false, testConfig)
		assert.ErrorIs(t, err, ErrCommissionOutOfRange, "rate=%v", rate)
	}
}

func TestCalculate_ZeroGross(t *testing.T) {
	b, err := Calculate(0, 10, true, false, testConfig)
	require.NoError(t, err)
	assert.Equal(t, Breakdown{}, b)
}
