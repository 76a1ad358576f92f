package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		callbacksTotal,
		amountMismatchTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by terminal status (completed/failed/cancelled) plus initiations (pending).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_kes_total",
			Help: "Total KES value of completed payments.",
		},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_callbacks_total",
			Help: "Callback deliveries by outcome (completed/failed/duplicate/unknown/blocked/malformed).",
		},
		[]string{"outcome"},
	)

	amountMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mpesa_amount_mismatch_total",
			Help: "Callbacks whose confirmed amount differed from the recorded payment amount.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(amountKES int64) {
	paymentsRevenueTotal.Add(float64(amountKES))
}

func IncCallback(outcome string) {
	callbacksTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncAmountMismatch() {
	amountMismatchTotal.Inc()
}
