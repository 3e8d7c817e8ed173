package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

func TestRecordOperationLabelsByCode(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordOperation("contribute", time.Millisecond, nil)
	c.RecordOperation("contribute", time.Millisecond, domain.ErrExceedsMax)
	c.RecordOperation("contribute", time.Millisecond, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("contribute", ResultCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("contribute", "exceeds_max")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("contribute", "error")))
}

func TestGauges(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.SetOracleRate(decimal.RequireFromString("142.5"))
	c.UpdateCurveReserve("mint", 3*domain.NativeUnit/2)
	c.UpdateWebsocketConnections(4)

	assert.Equal(t, 142.5, testutil.ToFloat64(c.oracleRate))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.curveReserve.WithLabelValues("mint")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.wsConnections))
}

func TestRecordHTTPRequest(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordHTTPRequest("/launches/{id}", "GET", 404, 2*time.Millisecond)
	c.RecordHTTPRequest("/launches/{id}", "GET", 200, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(c.httpRequests))
}
