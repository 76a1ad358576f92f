package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		membershipsCreated,
		rolloverActivated,
		rolloverExpired,
		rolloverErrors,
		rolloverRuns,
	)
}

var (
	membershipsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberships_created_total",
			Help: "Memberships opened from completed payments, by plan.",
		},
		[]string{"plan"},
	)

	rolloverActivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_activated_total",
			Help: "Queued plans activated by the daily rollover job.",
		},
	)

	rolloverExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_expired_total",
			Help: "Memberships flipped to expired by the daily rollover job.",
		},
	)

	rolloverErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_errors_total",
			Help: "Per-row failures collected during rollover runs.",
		},
	)

	rolloverRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_runs_total",
			Help: "Completed rollover job invocations.",
		},
	)
)

func IncMembershipCreated(plan string) {
	membershipsCreated.WithLabelValues(norm(plan)).Inc()
}

func AddRolloverActivated(n int) { rolloverActivated.Add(float64(n)) }
func AddRolloverExpired(n int)   { rolloverExpired.Add(float64(n)) }
func AddRolloverErrors(n int)    { rolloverErrors.Add(float64(n)) }
func IncRolloverRun()            { rolloverRuns.Inc() }
