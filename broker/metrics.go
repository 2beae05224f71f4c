package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the broker cycle. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Applied transactions by side
	Transactions *prometheus.CounterVec

	// Dropped orders by stage: "control" or "blotter"
	Rejections *prometheus.CounterVec

	// Skipped buy legs after an account control violation
	AccountViolations prometheus.Counter

	// One Implement call, signals through ledger apply
	StepLatency prometheus.Histogram
}

// NewMetrics registers the broker metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "algotrader_broker_transactions_total",
			Help: "Transactions applied to the ledger by side",
		}, []string{"side"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "algotrader_broker_rejections_total",
			Help: "Orders dropped before becoming transactions by stage",
		}, []string{"stage"}),

		AccountViolations: f.NewCounter(prometheus.CounterOpts{
			Name: "algotrader_broker_account_violations_total",
			Help: "Sessions where an account control blocked new buys",
		}),

		StepLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "algotrader_broker_step_duration_seconds",
			Help:    "Duration of one broker step",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncTransaction(side string) {
	if m != nil {
		m.Transactions.WithLabelValues(side).Inc()
	}
}

func (m *Metrics) IncRejection(stage string) {
	if m != nil {
		m.Rejections.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) IncAccountViolation() {
	if m != nil {
		m.AccountViolations.Inc()
	}
}

func (m *Metrics) ObserveStep(d time.Duration) {
	if m != nil {
		m.StepLatency.Observe(d.Seconds())
	}
}
