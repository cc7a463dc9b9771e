package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LicensingMetrics records aggregation, pinning, and on-chain write outcomes.
type LicensingMetrics struct {
	aggregationDuration  *prometheus.HistogramVec
	metadataFetchFailure prometheus.Counter
	pinOperations        *prometheus.CounterVec
	licensesIssued       prometheus.Counter
	licensesDeactivated  prometheus.Counter
}

// NewLicensingMetrics registers the licensing metrics on the provided registerer.
func NewLicensingMetrics(reg prometheus.Registerer) *LicensingMetrics {
	if reg == nil {
		return &LicensingMetrics{}
	}
	aggregationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "license_aggregation_duration_seconds",
		Help:    "Duration of per-account license aggregation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	metadataFetchFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "license_metadata_fetch_failures",
		Help: "Metadata gateway fetches that degraded to an empty document.",
	})
	pinOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pin_operations",
		Help: "Pinning service calls by kind and outcome.",
	}, []string{"kind", "outcome"})
	licensesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "licenses_issued",
		Help: "Licenses issued on-chain through this service.",
	})
	licensesDeactivated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "licenses_deactivated",
		Help: "Licenses deactivated on-chain through this service.",
	})
	reg.MustRegister(aggregationDuration, metadataFetchFailure, pinOperations, licensesIssued, licensesDeactivated)
	return &LicensingMetrics{
		aggregationDuration:  aggregationDuration,
		metadataFetchFailure: metadataFetchFailure,
		pinOperations:        pinOperations,
		licensesIssued:       licensesIssued,
		licensesDeactivated:  licensesDeactivated,
	}
}

// ObserveAggregation records the duration of one aggregation pass.
func (m *LicensingMetrics) ObserveAggregation(outcome string, duration time.Duration) {
	if m == nil || m.aggregationDuration == nil {
		return
	}
	m.aggregationDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncMetadataFetchFailure counts a degraded metadata fetch.
func (m *LicensingMetrics) IncMetadataFetchFailure() {
	if m == nil || m.metadataFetchFailure == nil {
		return
	}
	m.metadataFetchFailure.Inc()
}

// IncPin counts one pinning call.
func (m *LicensingMetrics) IncPin(kind, outcome string) {
	if m == nil || m.pinOperations == nil {
		return
	}
	m.pinOperations.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncIssued counts a successful on-chain issuance.
func (m *LicensingMetrics) IncIssued() {
	if m == nil || m.licensesIssued == nil {
		return
	}
	m.licensesIssued.Inc()
}

// IncDeactivated counts a successful on-chain deactivation.
func (m *LicensingMetrics) IncDeactivated() {
	if m == nil || m.licensesDeactivated == nil {
		return
	}
	m.licensesDeactivated.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
