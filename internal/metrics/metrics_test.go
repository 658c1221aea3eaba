package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/series"
	"github.com/talgya/dtosim/internal/stats"
)

func TestObserve(t *testing.T) {
	r := NewRegistry()
	r.Observe(series.Record{
		Tick:           12,
		Viable:         true,
		Traffickers:    5,
		Packagers:      4,
		Retailers:      30,
		Treasury:       1500.5,
		DosesSold:      800,
		ArrestedMinor:  1,
		StockRetailers: 220,
		Network: stats.Metrics{
			Components:           2,
			DegreeCentralization: 0.4,
		},
	})

	assert.Equal(t, 12.0, testutil.ToFloat64(r.Tick))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Viable))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Lockdown))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.Members.WithLabelValues("retailer")))
	assert.Equal(t, 220.0, testutil.ToFloat64(r.Stock.WithLabelValues("retailer")))
	assert.Equal(t, 1500.5, testutil.ToFloat64(r.Treasury))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Arrests.WithLabelValues("minor")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Components))
	assert.Equal(t, 0.4, testutil.ToFloat64(r.Centralization.WithLabelValues("degree")))

	r.Observe(series.Record{Tick: 13, DosesSold: 200})
	assert.Equal(t, 1000.0, testutil.ToFloat64(r.DosesSold))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.TicksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Viable))
}

func TestObserveIgnoresReplayedTicks(t *testing.T) {
	r := NewRegistry()
	r.Observe(series.Record{Tick: 5, DosesSold: 10})
	r.Observe(series.Record{Tick: 5, DosesSold: 10})
	r.Observe(series.Record{Tick: 3, DosesSold: 10})
	assert.Equal(t, 10.0, testutil.ToFloat64(r.DosesSold))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.Tick))
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/v1/status", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/v1/status", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("POST", "/api/v1/step", "400", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/status", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/step", "400")))
}

func TestHandlerExposition(t *testing.T) {
	r := NewRegistry()
	r.Observe(series.Record{Tick: 1, Members: 44, Traffickers: 5})
	r.RecordTick(3 * time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dtosim_members{role="trafficker"} 5`)
	assert.Contains(t, string(body), "dtosim_tick_duration_seconds_count 1")
}
