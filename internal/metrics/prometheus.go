package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector is the production Collector.
type PrometheusCollector struct {
	payoutsCreated     *prometheus.CounterVec
	transfersInitiated *prometheus.CounterVec
	payoutsCompleted   prometheus.Counter
	payoutAmount       prometheus.Counter
	payoutsFailed      prometheus.Counter
	payoutsReversed    prometheus.Counter
	retriesScheduled   prometheus.Counter
	escalations        prometheus.Counter
	webhookEvents      *prometheus.CounterVec
	remittances        *prometheus.CounterVec
}

// NewPrometheusCollector registers settlement metrics on the given
// registerer (pass prometheus.DefaultRegisterer in production).
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		payoutsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_payouts_created_total",
			Help: "Payouts created, by initial status",
		}, []string{"status"}),
		transfersInitiated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transfers_initiated_total",
			Help: "Gateway transfer attempts, by result",
		}, []string{"result"}),
		payoutsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payouts_completed_total",
			Help: "Payouts confirmed settled by the gateway",
		}),
		payoutAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payout_amount_minor_units_total",
			Help: "Sum of completed net payout amounts in minor currency units",
		}),
		payoutsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payouts_failed_total",
			Help: "Payout transfer failures",
		}),
		payoutsReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payouts_reversed_total",
			Help: "Payout reversals",
		}),
		retriesScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_retries_scheduled_total",
			Help: "Retry attempts scheduled",
		}),
		escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "settlement_escalations_total",
			Help: "Payouts escalated to the admin queue after exhausting retries",
		}),
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_webhook_events_total",
			Help: "Webhook events, by kind and processing result",
		}, []string{"kind", "result"}),
		remittances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_cod_remittances_total",
			Help: "COD remittance reports, by match result",
		}, []string{"result"}),
	}
}

func (c *PrometheusCollector) PayoutCreated(status string) {
	c.payoutsCreated.WithLabelValues(status).Inc()
}

func (c *PrometheusCollector) TransferInitiated(result string) {
	c.transfersInitiated.WithLabelValues(result).Inc()
}

func (c *PrometheusCollector) PayoutCompleted(amount int64) {
	c.payoutsCompleted.Inc()
	c.payoutAmount.Add(float64(amount))
}

func (c *PrometheusCollector) PayoutFailed()   { c.payoutsFailed.Inc() }
func (c *PrometheusCollector) PayoutReversed() { c.payoutsReversed.Inc() }
func (c *PrometheusCollector) RetryScheduled() { c.retriesScheduled.Inc() }
func (c *PrometheusCollector) EscalationRaised() { c.escalations.Inc() }

func (c *PrometheusCollector) WebhookEvent(kind, result string) {
	c.webhookEvents.WithLabelValues(kind, result).Inc()
}

func (c *PrometheusCollector) RemittanceRecorded(result string) {
	c.remittances.WithLabelValues(result).Inc()
}
