package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Settlement outcomes recorded per source.
const (
	OutcomeSettled  = "settled"
	OutcomeFailed   = "failed"
	OutcomeNoop     = "noop"
	OutcomeMismatch = "amount_mismatch"
)

// PaymentMetrics tracks settlement outcomes and webhook rejections.
type PaymentMetrics struct {
	settlements       *prometheus.CounterVec
	webhookRejections *prometheus.CounterVec
}

// NewPaymentMetrics registers payment metrics on reg. A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_settlements_total",
		Help:      "Payment settlement attempts by source and outcome.",
	}, []string{"source", "outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_rejections_total",
		Help:      "Webhook deliveries rejected before processing.",
	}, []string{"provider", "reason"})
	reg.MustRegister(settlements, rejections)
	return &PaymentMetrics{settlements: settlements, webhookRejections: rejections}
}

// ObserveSettlement counts a settle/fail attempt coming from source.
func (p *PaymentMetrics) ObserveSettlement(source, outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncWebhookRejection counts a rejected webhook delivery.
func (p *PaymentMetrics) IncWebhookRejection(provider, reason string) {
	if p == nil || p.webhookRejections == nil {
		return
	}
	p.webhookRejections.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}
