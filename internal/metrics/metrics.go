// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks flow outcomes and quote latency. Each collector owns its
// registry so tests can create them freely.
type Collector struct {
	registry *prometheus.Registry

	transferCounter  *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	quoteDuration    prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transferCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remit_transfers_total",
			Help: "Submitted transfers by flow and outcome",
		}, []string{"flow", "status"}),
		transferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remit_transfer_duration_seconds",
			Help:    "Wall time of a transfer flow from quote to confirmation",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"flow"}),
		quoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remit_quote_duration_seconds",
			Help:    "Latency of path quote lookups",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	c.registry.MustRegister(c.transferCounter, c.transferDuration, c.quoteDuration)
	return c
}

// Registry exposes the collector's registry for an exporter endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordTransfer counts one finished transfer flow.
func (c *Collector) RecordTransfer(flow string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.transferCounter.WithLabelValues(flow, status).Inc()
	c.transferDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordQuote tracks one quote lookup.
func (c *Collector) RecordQuote(duration time.Duration) {
	c.quoteDuration.Observe(duration.Seconds())
}
