// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datamap_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datamap_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	RenderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datamap_render_duration_ms",
		Help:    "Document render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"format"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datamap_cache_hits_total",
		Help: "Render cache hits by level",
	}, []string{"level"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "datamap_cache_misses_total",
		Help: "Render cache misses",
	})
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datamap_updates_total",
		Help: "Map mutations by kind",
	}, []string{"kind"})
	UpdateFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datamap_update_failures_total",
		Help: "Rejected map mutations by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(UpdatesTotal)
	prometheus.MustRegister(UpdateFailuresTotal)
}

// Handler serves the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
