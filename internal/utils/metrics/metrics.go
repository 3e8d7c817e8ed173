// internal/utils/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// ResultCommitted labels operations that were applied.
const ResultCommitted = "committed"

// RecordOperation записывает исход операции: committed или код причины отказа.
func (c *Collector) RecordOperation(op string, duration time.Duration, err error) {
	result := ResultCommitted
	if err != nil {
		result = string(domain.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	c.operations.WithLabelValues(op, result).Inc()
	c.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordEvent counts a published event.
func (c *Collector) RecordEvent(eventType string) {
	c.events.WithLabelValues(eventType).Inc()
}

// SetOracleRate обновляет последний курс.
func (c *Collector) SetOracleRate(rate decimal.Decimal) {
	c.oracleRate.Set(rate.InexactFloat64())
}

// RecordOracleFailure counts a failed rate lookup.
func (c *Collector) RecordOracleFailure() {
	c.oracleFailures.Inc()
}

// UpdateWebsocketConnections sets the number of live stream clients.
func (c *Collector) UpdateWebsocketConnections(active int) {
	c.wsConnections.Set(float64(active))
}

// UpdateCurveReserve tracks a curve pool's real reserve.
func (c *Collector) UpdateCurveReserve(launch string, reserve uint64) {
	c.curveReserve.WithLabelValues(launch).Set(domain.NativeToFloat(reserve))
}

// RecordKeeperRun counts a keeper submission.
func (c *Collector) RecordKeeperRun(job string, err error) {
	result := ResultCommitted
	if err != nil {
		result = string(domain.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	c.keeperRuns.WithLabelValues(job, result).Inc()
}

// RecordHTTPRequest observes one API request. route is the mux path template.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}
