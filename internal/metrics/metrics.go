// Package metrics exposes engine counters over Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds the engine's instruments on a private registry, so tests
// and concurrent runs never trip duplicate-registration panics.
type Set struct {
	registry  *prometheus.Registry
	Ticks     prometheus.Counter
	Decisions *prometheus.CounterVec
	Rejects   *prometheus.CounterVec
	EquityUSD prometheus.Gauge
}

// NewSet builds and registers the instrument set.
func NewSet() *Set {
	registry := prometheus.NewRegistry()

	s := &Set{
		registry: registry,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memescout_ticks_total",
			Help: "Engine ticks processed.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memescout_decisions_total",
			Help: "Validated decisions by action.",
		}, []string{"action"}),
		Rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memescout_rejects_total",
			Help: "Validator rejections by reason code.",
		}, []string{"reason"}),
		EquityUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memescout_equity_usd",
			Help: "Current simulated equity in USD.",
		}),
	}

	registry.MustRegister(s.Ticks, s.Decisions, s.Rejects, s.EquityUSD)
	return s
}

// Handler returns the scrape handler for this set.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr. Blocks until the server fails.
func (s *Set) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
