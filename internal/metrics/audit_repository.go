package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	auditRepositoryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "audit_repository",
		Name:      "operations_total",
		Help:      "Count of audit warehouse operations.",
	}, []string{"operation", "status"})
	auditRepositoryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "audit_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of audit warehouse operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation", "status"})
)

// AuditRepository tracks metrics for ClickHouse audit operations.
type AuditRepository struct{}

// NewAuditRepository creates a metrics collector for the audit repository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Observe records duration and status of an audit repository operation.
func (m AuditRepository) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	auditRepositoryRequestsTotal.WithLabelValues(operation, status).Inc()
	auditRepositoryRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
