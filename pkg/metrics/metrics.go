// Package metrics exposes the prometheus instrumentation for the atlas
// service: build pipeline outcomes, crawler fetch behavior, and HTTP
// traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric family behind one prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Build pipeline
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	BuildNodes        prometheus.Gauge
	BuildEdges        prometheus.Gauge
	BuildHubs         prometheus.Gauge
	AmbiguousResolves prometheus.Counter
	DroppedPeers      prometheus.Counter

	// Crawler
	CrawlRequestsTotal *prometheus.CounterVec
	CrawlDuration      prometheus.Histogram

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates the registry and registers all metric families.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.BuildsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_builds_total",
			Help: "Total number of atlas builds by outcome",
		},
		[]string{"status"},
	)
	r.BuildDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_build_duration_seconds",
			Help:    "Full pipeline duration per build",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	r.BuildNodes = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_build_nodes",
			Help: "Node count of the current build",
		},
	)
	r.BuildEdges = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_build_edges",
			Help: "Edge count of the current build after trimming",
		},
	)
	r.BuildHubs = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_build_hubs",
			Help: "Hub count of the current build",
		},
	)
	r.AmbiguousResolves = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_ambiguous_resolutions_total",
			Help: "Peer addresses resolved by random tie-break across an address cluster",
		},
	)
	r.DroppedPeers = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_dropped_peers_total",
			Help: "Reported peers dropped because they resolved to no known node",
		},
	)

	r.CrawlRequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_crawl_requests_total",
			Help: "Crawler HTTP fetches by outcome",
		},
		[]string{"status"},
	)
	r.CrawlDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_crawl_duration_seconds",
			Help:    "Whole-network crawl duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	r.HTTPRequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return r
}

// Prometheus returns the underlying registry for the /metrics handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records one served HTTP request.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordBuild records one completed (or failed) build.
func (r *Registry) RecordBuild(status string, duration time.Duration, nodes, edges, hubs, ambiguous, dropped int) {
	r.BuildsTotal.WithLabelValues(status).Inc()
	r.BuildDuration.Observe(duration.Seconds())
	if status == "success" {
		r.BuildNodes.Set(float64(nodes))
		r.BuildEdges.Set(float64(edges))
		r.BuildHubs.Set(float64(hubs))
		r.AmbiguousResolves.Add(float64(ambiguous))
		r.DroppedPeers.Add(float64(dropped))
	}
}
