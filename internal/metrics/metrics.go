// Package metrics exposes the state of a live run as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/series"
)

// Registry holds all metrics for one served run.
type Registry struct {
	// Simulation
	Tick           prometheus.Gauge
	TicksTotal     prometheus.Counter
	Viable         prometheus.Gauge
	Lockdown       prometheus.Gauge
	Members        *prometheus.GaugeVec
	Stock          *prometheus.GaugeVec
	Treasury       prometheus.Gauge
	Revenues       prometheus.Gauge
	Expenses       prometheus.Gauge
	DosesSold      prometheus.Counter
	Acquisitions   prometheus.Gauge
	Recruits       prometheus.Gauge
	Arrests        *prometheus.GaugeVec
	SeizedDrug     prometheus.Gauge
	Components     prometheus.Gauge
	Geodesic       prometheus.Gauge
	Centralization *prometheus.GaugeVec
	TickDuration   prometheus.Histogram

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
	mu       sync.Mutex
	last     uint64
}

// NewRegistry creates a registry with every metric initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initSimulationMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initSimulationMetrics() {
	f := promauto.With(r.registry)

	r.Tick = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_tick",
		Help: "Last processed simulation tick (day)",
	})
	r.TicksTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "dtosim_ticks_total",
		Help: "Ticks processed by this process",
	})
	r.Viable = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_viable",
		Help: "1 while the organization is viable",
	})
	r.Lockdown = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_lockdown",
		Help: "1 while the post-disruption lockdown is in force",
	})
	r.Members = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtosim_members",
		Help: "Active members by role",
	}, []string{"role"})
	r.Stock = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtosim_stock_grams",
		Help: "Drug held by active members, by role",
	}, []string{"role"})
	r.Treasury = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_treasury_euros",
		Help: "Organization cash box",
	})
	r.Revenues = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_revenues_euros",
		Help: "Cumulative revenues of the run",
	})
	r.Expenses = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_expenses_euros",
		Help: "Cumulative expenses of the run",
	})
	r.DosesSold = f.NewCounter(prometheus.CounterOpts{
		Name: "dtosim_doses_sold_total",
		Help: "Doses sold on ticks processed by this process",
	})
	r.Acquisitions = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_acquisitions",
		Help: "Cumulative successful acquisitions",
	})
	r.Recruits = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_recruits",
		Help: "Cumulative recruits",
	})
	r.Arrests = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtosim_arrests",
		Help: "Cumulative arrests by kind (minor, major)",
	}, []string{"kind"})
	r.SeizedDrug = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_seized_grams",
		Help: "Cumulative drug seized from arrested members",
	})
	r.Components = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_network_components",
		Help: "Connected components of the active network",
	})
	r.Geodesic = f.NewGauge(prometheus.GaugeOpts{
		Name: "dtosim_network_average_geodesic",
		Help: "Average shortest-path length over reachable pairs",
	})
	r.Centralization = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtosim_network_centralization",
		Help: "Network centralization by measure (degree, betweenness)",
	}, []string{"measure"})
	r.TickDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "dtosim_tick_duration_seconds",
		Help:    "Wall time spent computing one tick",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "dtosim_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dtosim_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
}

// Observe updates every simulation metric from a tick record. A record
// not newer than the last one observed is ignored.
func (r *Registry) Observe(rec series.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Tick <= r.last {
		return
	}
	r.last = rec.Tick

	r.Tick.Set(float64(rec.Tick))
	r.TicksTotal.Inc()
	r.Viable.Set(flag(rec.Viable))
	r.Lockdown.Set(flag(rec.Lockdown))

	r.Members.WithLabelValues(agents.RoleTrafficker.String()).Set(float64(rec.Traffickers))
	r.Members.WithLabelValues(agents.RolePackager.String()).Set(float64(rec.Packagers))
	r.Members.WithLabelValues(agents.RoleRetailer.String()).Set(float64(rec.Retailers))
	r.Stock.WithLabelValues(agents.RoleTrafficker.String()).Set(rec.StockTraffickers)
	r.Stock.WithLabelValues(agents.RolePackager.String()).Set(rec.StockPackagers)
	r.Stock.WithLabelValues(agents.RoleRetailer.String()).Set(rec.StockRetailers)

	r.Treasury.Set(rec.Treasury)
	r.Revenues.Set(rec.Revenues)
	r.Expenses.Set(rec.Expenses)
	r.DosesSold.Add(float64(rec.DosesSold))
	r.Acquisitions.Set(float64(rec.Acquisitions))
	r.Recruits.Set(float64(rec.Recruits))
	r.Arrests.WithLabelValues("minor").Set(float64(rec.ArrestedMinor))
	r.Arrests.WithLabelValues("major").Set(float64(rec.ArrestedMajor))
	r.SeizedDrug.Set(rec.SeizedDrug)

	r.Components.Set(float64(rec.Network.Components))
	r.Geodesic.Set(rec.Network.AverageGeodesic)
	r.Centralization.WithLabelValues("degree").Set(rec.Network.DegreeCentralization)
	r.Centralization.WithLabelValues("betweenness").Set(rec.Network.BetweennessCentralization)
}

// RecordTick records the wall time of one tick.
func (r *Registry) RecordTick(d time.Duration) {
	r.TickDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
