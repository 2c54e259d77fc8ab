// Package metrics exposes Prometheus instrumentation for plan generation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mtlprog/rebalance/internal/domain"
)

// Plan outcome labels.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// Recorder tracks plan generation counts, order mix and latency.
type Recorder struct {
	PlansGenerated *prometheus.CounterVec
	OrdersPlanned  *prometheus.CounterVec
	PlanDuration   prometheus.Histogram
	PlanValue      prometheus.Gauge
}

// NewRecorder registers the plan metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		PlansGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalance_plans_generated_total",
				Help: "Total number of order plans generated, by outcome",
			},
			[]string{"status"},
		),
		OrdersPlanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebalance_orders_planned_total",
				Help: "Total number of planned orders, by order type",
			},
			[]string{"order_type"},
		),
		PlanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rebalance_plan_duration_seconds",
			Help:    "Order plan generation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PlanValue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rebalance_last_plan_portfolio_value_usd",
			Help: "Portfolio value of the most recent successful plan",
		}),
	}
}

// ObservePlan records one successful plan.
func (r *Recorder) ObservePlan(orders []domain.PlannedOrder, totalValue float64, elapsed time.Duration) {
	r.PlansGenerated.WithLabelValues(StatusSuccess).Inc()
	r.PlanDuration.Observe(elapsed.Seconds())
	r.PlanValue.Set(totalValue)
	for _, o := range orders {
		r.OrdersPlanned.WithLabelValues(string(o.OrderType)).Inc()
	}
}

// ObserveFailure records a failed plan. Planning errors count as rejected.
func (r *Recorder) ObserveFailure(err error) {
	status := StatusError
	if domain.IsPlanningError(err) {
		status = StatusRejected
	}
	r.PlansGenerated.WithLabelValues(status).Inc()
}
