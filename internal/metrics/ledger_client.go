package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "ledger_client",
		Name:      "operations_total",
		Help:      "Count of ledger contract operations.",
	}, []string{"operation", "status"})
	ledgerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "ledger_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger contract operations, confirmation wait included for writes.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 120},
	}, []string{"operation", "status"})
)

// LedgerClient tracks metrics for contract reads and writes.
type LedgerClient struct{}

// NewLedgerClient creates a metrics collector for the ledger gateway.
func NewLedgerClient() *LedgerClient {
	return &LedgerClient{}
}

// Observe records a single contract call outcome and duration.
func (m LedgerClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ledgerRequestsTotal.WithLabelValues(operation, status).Inc()
	ledgerRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
