// Package metrics exposes Prometheus metrics for the HTTP layer and the
// simulation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Simulation metrics
	NeuronsCreated     prometheus.Counter
	ConnectionsCreated prometheus.Counter
	Stimulations       prometheus.Counter
	Firings            prometheus.Counter
	CascadeSize        prometheus.Histogram
	ResidentNetworks   prometheus.Gauge

	// Storage failures by operation
	StoreErrors *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry so several can
// coexist in tests
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		NeuronsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "neurons_created_total",
			Help:      "Total number of neurons created",
		}),
		ConnectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_created_total",
			Help:      "Total number of connections created, manual and automatic",
		}),
		Stimulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stimulations_total",
			Help:      "Total number of stimulation requests",
		}),
		Firings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "firings_total",
			Help:      "Total number of neuron firings across all cascades",
		}),
		CascadeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cascade_size",
			Help:      "Number of neurons fired per stimulation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ResidentNetworks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resident_networks",
			Help:      "Number of owner networks held in memory",
		}),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of failed storage operations",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.NeuronsCreated,
		c.ConnectionsCreated,
		c.Stimulations,
		c.Firings,
		c.CascadeSize,
		c.ResidentNetworks,
		c.StoreErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one finished HTTP request
func (c *Collector) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// NeuronsAdded counts n new neurons
func (c *Collector) NeuronsAdded(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.NeuronsCreated.Add(float64(n))
}

// ConnectionsAdded counts n new edges
func (c *Collector) ConnectionsAdded(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ConnectionsCreated.Add(float64(n))
}

// ObserveCascade records a stimulation and the number of neurons it fired
func (c *Collector) ObserveCascade(fired int) {
	if c == nil {
		return
	}
	c.Stimulations.Inc()
	c.Firings.Add(float64(fired))
	c.CascadeSize.Observe(float64(fired))
}

// SetResidentNetworks reports how many owner networks are loaded
func (c *Collector) SetResidentNetworks(n int) {
	if c == nil {
		return
	}
	c.ResidentNetworks.Set(float64(n))
}

// StoreFailed counts a failed storage operation
func (c *Collector) StoreFailed(operation string) {
	if c == nil {
		return
	}
	c.StoreErrors.WithLabelValues(operation).Inc()
}
