package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "record_store",
		Name:      "reloads_total",
		Help:      "Count of record store reloads.",
	}, []string{"status"})
	storeReloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "record_store",
		Name:      "reload_duration_seconds",
		Help:      "Duration of full record store reloads.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
	storeRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "habitvault",
		Subsystem: "record_store",
		Name:      "records",
		Help:      "Number of records currently cached.",
	})
	storeSkippedRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "record_store",
		Name:      "skipped_records_total",
		Help:      "Count of records skipped during reload due to per-record fetch failures.",
	})
)

// RecordStore tracks metrics for record store reloads.
type RecordStore struct{}

// NewRecordStore creates a metrics collector for the record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// ObserveReload records the outcome of a full reload.
func (m RecordStore) ObserveReload(err error, records, skipped int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	storeReloadsTotal.WithLabelValues(status).Inc()
	storeReloadDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	if err == nil {
		storeRecords.Set(float64(records))
	}
	if skipped > 0 {
		storeSkippedRecordsTotal.Add(float64(skipped))
	}
}
