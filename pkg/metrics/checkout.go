package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order placement outcomes and payment latency.
type CheckoutMetrics struct {
	orders   *prometheus.CounterVec
	declines *prometheus.CounterVec
	payment  *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Orders placed, labelled by payment method.",
	}, []string{"method"})
	declines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_declines_total",
		Help: "Payment authorizations that were declined.",
	}, []string{"method"})
	payment := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_payment_duration_seconds",
		Help:    "Time spent authorizing payment.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(orders, declines, payment)
	return &CheckoutMetrics{
		orders:   orders,
		declines: declines,
		payment:  payment,
	}
}

// IncOrderPlaced counts a successfully placed order.
func (m *CheckoutMetrics) IncOrderPlaced(method string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncPaymentDeclined counts a declined authorization.
func (m *CheckoutMetrics) IncPaymentDeclined(method string) {
	if m == nil || m.declines == nil {
		return
	}
	m.declines.WithLabelValues(normalizeLabel(method)).Inc()
}

// ObservePaymentDuration records how long the authorization took.
func (m *CheckoutMetrics) ObservePaymentDuration(method string, elapsed time.Duration) {
	if m == nil || m.payment == nil {
		return
	}
	m.payment.WithLabelValues(normalizeLabel(method)).Observe(elapsed.Seconds())
}
