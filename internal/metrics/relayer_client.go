package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "relayer_client",
		Name:      "operations_total",
		Help:      "Count of FHE relayer operations.",
	}, []string{"operation", "status"})
	relayerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "relayer_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of FHE relayer operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// RelayerClient tracks metrics for encrypt and public-decrypt calls.
type RelayerClient struct{}

// NewRelayerClient creates a metrics collector for the FHE relayer client.
func NewRelayerClient() *RelayerClient {
	return &RelayerClient{}
}

// Observe records a single relayer call outcome and duration.
func (m RelayerClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	relayerRequestsTotal.WithLabelValues(operation, status).Inc()
	relayerRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
