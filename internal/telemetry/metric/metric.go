// Package metric exposes Prometheus metrics for the server: resolver
// cache behavior, outbound federation traffic, realtime occupancy,
// and HTTP request rates.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	// Resolver metrics, labeled by record kind (user, world, ...).
	ResolverHits   *prometheus.CounterVec
	ResolverMisses *prometheus.CounterVec

	// Federation metrics, labeled by outcome.
	FederationFetches *prometheus.CounterVec
	FederationRetries prometheus.Counter

	// Realtime metrics.
	PlayersConnected prometheus.Gauge
	Broadcasts       prometheus.Counter

	// Integrity metrics.
	IntegrityIssued   prometheus.Counter
	IntegrityVerified *prometheus.CounterVec

	// HTTP metrics.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	reg *prometheus.Registry
}

// NewRegistry creates and registers all application metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{
		ResolverHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reileta_resolver_cache_hits_total",
			Help: "Resolver lookups served from cache.",
		}, []string{"kind"}),
		ResolverMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reileta_resolver_cache_misses_total",
			Help: "Resolver lookups that required an import or fetch.",
		}, []string{"kind"}),
		FederationFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reileta_federation_fetches_total",
			Help: "Outbound federation requests by outcome.",
		}, []string{"outcome"}),
		FederationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reileta_federation_gateway_retries_total",
			Help: "Requests retried after a gateway redirect.",
		}),
		PlayersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reileta_players_connected",
			Help: "Players currently present in instances.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reileta_instance_broadcasts_total",
			Help: "Messages fanned out to instance members.",
		}),
		IntegrityIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reileta_integrity_issued_total",
			Help: "Integrity assertions created or extended.",
		}),
		IntegrityVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reileta_integrity_verified_total",
			Help: "Integrity token validations by outcome.",
		}, []string{"outcome"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reileta_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reileta_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reg: reg,
	}

	reg.MustRegister(
		r.ResolverHits, r.ResolverMisses,
		r.FederationFetches, r.FederationRetries,
		r.PlayersConnected, r.Broadcasts,
		r.IntegrityIssued, r.IntegrityVerified,
		r.RequestsTotal, r.RequestDuration,
	)
	return r
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
