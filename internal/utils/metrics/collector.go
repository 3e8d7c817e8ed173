// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "launchpad"

// Collector holds the launchpad metrics.
type Collector struct {
	operations     *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
	events         *prometheus.CounterVec
	oracleRate     prometheus.Gauge
	oracleFailures prometheus.Counter
	wsConnections  prometheus.Gauge
	curveReserve   *prometheus.GaugeVec
	keeperRuns     *prometheus.CounterVec
	httpRequests   *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and prometheus.NewRegistry() in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Ledger operations by name and outcome",
			},
			[]string{"op", "result"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time from submission to receipt",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events published on the bus",
			},
			[]string{"type"},
		),
		oracleRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_rate_usd",
			Help:      "Last native/USD rate",
		}),
		oracleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_failures_total",
			Help:      "Rate lookups that found no source",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Active event stream connections",
		}),
		curveReserve: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "curve_real_reserve_native",
				Help:      "Real reserve of bonding curve pools in whole native coins",
			},
			[]string{"launch"},
		),
		keeperRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keeper_jobs_total",
				Help:      "Keeper job submissions by job and outcome",
			},
			[]string{"job", "result"},
		),
		httpRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "API requests by route, method and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	reg.MustRegister(
		c.operations,
		c.opDuration,
		c.events,
		c.oracleRate,
		c.oracleFailures,
		c.wsConnections,
		c.curveReserve,
		c.keeperRuns,
		c.httpRequests,
	)
	return c
}

// Reset clears labelled series. Useful in tests.
func (c *Collector) Reset() {
	c.operations.Reset()
	c.opDuration.Reset()
	c.events.Reset()
	c.curveReserve.Reset()
	c.keeperRuns.Reset()
	c.httpRequests.Reset()
}
