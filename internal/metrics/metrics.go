// Package metrics collects and exposes Prometheus metrics for serve mode.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks sweep outcomes.
type Collector struct {
	sweepsTotal       prometheus.Counter
	warningsSent      prometheus.Counter
	warningsFailed    prometheus.Counter
	removalCandidates prometheus.Gauge
	vendorErrors      *prometheus.CounterVec
}

// NewCollector registers the sweep metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatsweep_sweeps_total",
			Help: "Completed sweep runs.",
		}),
		warningsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatsweep_warnings_sent_total",
			Help: "Warning DMs delivered.",
		}),
		warningsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatsweep_warnings_failed_total",
			Help: "Warning DMs that could not be resolved or delivered.",
		}),
		removalCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seatsweep_removal_candidates",
			Help: "Removal candidates found by the most recent sweep.",
		}),
		vendorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatsweep_vendor_errors_total",
			Help: "Vendor fetch/classify failures by vendor.",
		}, []string{"vendor"}),
	}

	reg.MustRegister(
		c.sweepsTotal,
		c.warningsSent,
		c.warningsFailed,
		c.removalCandidates,
		c.vendorErrors,
	)

	return c
}

// RecordSweep records the aggregate outcome of one run.
func (c *Collector) RecordSweep(warned, warnFailed, removalCandidates int) {
	c.sweepsTotal.Inc()
	c.warningsSent.Add(float64(warned))
	c.warningsFailed.Add(float64(warnFailed))
	c.removalCandidates.Set(float64(removalCandidates))
}

// RecordVendorError counts one failed vendor contribution.
func (c *Collector) RecordVendorError(vendor string) {
	c.vendorErrors.WithLabelValues(vendor).Inc()
}

// Handler returns the scrape handler for the registry behind the collector.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
