package config

import "time"

// Settlement holds the tunables of the payout pipeline. Values come from the
// environment with defaults that match production behavior; the risk deltas
// and COD ceilings are product-owned constants surfaced here so they are not
// buried in service code.
type Settlement struct {
	Currency string

	// Transfer orchestration
	MaxRetries     int
	GatewayTimeout time.Duration

	// Withholding tax tiers. The lower rate applies when a legal tax
	// identifier is on file for the vendor. Amounts below the minimum
	// threshold skip withholding entirely.
	WithholdingRateWithTaxID float64
	WithholdingRateDefault   float64
	WithholdingMinAmount     int64

	// Webhook idempotency records are kept this long; a redelivery after
	// expiry would be reprocessed, which is accepted since gateway
	// redelivery windows are shorter.
	WebhookRetention time.Duration

	// Retry scheduler
	RetryScanInterval time.Duration

	// COD order-value ceilings per risk level, in minor currency units.
	CODCeilingLowRisk    int64
	CODCeilingMediumRisk int64
	CODCeilingHighRisk   int64

	// Risk score adjustments per order outcome, bounded to [0, 100].
	RiskDeltaSuccess int
	RiskDeltaReturn  int
	RiskDeltaFailure int

	// Risk profile cache TTL; profiles are recomputed on expiry.
	RiskCacheTTL time.Duration

	// Payout summary cache TTL.
	SummaryCacheTTL time.Duration
}

// LoadSettlement reads the settlement configuration from the environment.
func LoadSettlement() Settlement {
	return Settlement{
		Currency:                 GetEnv("SETTLEMENT_CURRENCY", "INR"),
		MaxRetries:               GetIntEnv("PAYOUT_MAX_RETRIES", 5),
		GatewayTimeout:           GetDurationEnv("GATEWAY_TIMEOUT", 10*time.Second),
		WithholdingRateWithTaxID: GetFloatEnv("WITHHOLDING_RATE_WITH_TAX_ID", 1.0),
		WithholdingRateDefault:   GetFloatEnv("WITHHOLDING_RATE_DEFAULT", 5.0),
		WithholdingMinAmount:     GetInt64Env("WITHHOLDING_MIN_AMOUNT", 250000),
		WebhookRetention:         GetDurationEnv("WEBHOOK_RETENTION", 7*24*time.Hour),
		RetryScanInterval:        GetDurationEnv("RETRY_SCAN_INTERVAL", 30*time.Second),
		CODCeilingLowRisk:        GetInt64Env("COD_CEILING_LOW_RISK", 2000000),
		CODCeilingMediumRisk:     GetInt64Env("COD_CEILING_MEDIUM_RISK", 500000),
		CODCeilingHighRisk:       GetInt64Env("COD_CEILING_HIGH_RISK", 100000),
		RiskDeltaSuccess:         GetIntEnv("RISK_DELTA_SUCCESS", 5),
		RiskDeltaReturn:          GetIntEnv("RISK_DELTA_RETURN", 10),
		RiskDeltaFailure:         GetIntEnv("RISK_DELTA_FAILURE", 20),
		RiskCacheTTL:             GetDurationEnv("RISK_CACHE_TTL", 30*time.Minute),
		SummaryCacheTTL:          GetDurationEnv("SUMMARY_CACHE_TTL", time.Minute),
	}
}
