package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coordinatorOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "coordinator",
		Name:      "operations_total",
		Help:      "Count of coordinator operations.",
	}, []string{"operation", "status"})
	coordinatorOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "coordinator",
		Name:      "operation_duration_seconds",
		Help:      "End-to-end duration of coordinator operations.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation", "status"})
)

// Coordinator tracks metrics for encrypt, submit, and verify operations.
type Coordinator struct{}

// NewCoordinator creates a metrics collector for the coordinators.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Observe records a coordinator operation outcome. Benign outcomes (idempotent
// short-circuits, lost verification races) count as success.
func (m Coordinator) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	coordinatorOperationsTotal.WithLabelValues(operation, status).Inc()
	coordinatorOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
