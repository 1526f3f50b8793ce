package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Failure reasons recorded by the checkout flows.
const (
	ReasonValidation        = "validation"
	ReasonEmptyCart         = "empty_cart"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonGateway           = "gateway"
	ReasonInternal          = "internal"
)

// Stages of the checkout pipeline used as the failure label.
const (
	StageCreateOrder = "create_order"
	StageVerify      = "verify"
	StageCommit      = "commit"
	StageDirect      = "direct"
)

// CheckoutMetrics tracks purchase commits and the reasons checkouts fail.
type CheckoutMetrics struct {
	commits  *prometheus.CounterVec
	failures *prometheus.CounterVec
	amount   *prometheus.HistogramVec
	orders   prometheus.Counter
}

// NewCheckoutMetrics registers the checkout collectors on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_commits_total",
		Help: "Purchase commits that completed, by payment method.",
	}, []string{"method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts rejected or failed, by stage and reason.",
	}, []string{"stage", "reason"})
	amount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_committed_amount",
		Help:    "Committed checkout totals in the major currency unit.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}, []string{"method"})
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_gateway_orders_total",
		Help: "Gateway orders created for cart payments.",
	})
	reg.MustRegister(commits, failures, amount, orders)
	return &CheckoutMetrics{
		commits:  commits,
		failures: failures,
		amount:   amount,
		orders:   orders,
	}
}

// ObserveCommit records a successful commit and its total.
func (m *CheckoutMetrics) ObserveCommit(method string, total decimal.Decimal) {
	if m == nil || m.commits == nil {
		return
	}
	label := normalizeLabel(method)
	m.commits.WithLabelValues(label).Inc()
	m.amount.WithLabelValues(label).Observe(total.InexactFloat64())
}

// IncFailure increments the failure counter for the stage and reason.
func (m *CheckoutMetrics) IncFailure(stage, reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(stage), normalizeLabel(reason)).Inc()
}

// IncGatewayOrder counts a gateway order created for a cart.
func (m *CheckoutMetrics) IncGatewayOrder() {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
