// Package metrics exposes the gateway's Prometheus series, all prefixed
// auto_ai_router_.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
)

const namespace = "auto_ai_router"

// Collector owns the gateway's metric instances and a private registry.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	bansTotal       *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	credentials     *prometheus.GaugeVec
}

// NewCollector creates the collector with its own registry. buckets
// overrides the request duration histogram buckets; nil uses defaults
// tuned for LLM latencies.
func NewCollector(buckets []float64) *Collector {
	if len(buckets) == 0 {
		buckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of gateway requests by provider, model and status",
			},
			[]string{"provider", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Upstream request duration in seconds",
				Buckets:   buckets,
			},
			[]string{"provider", "model"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of upstream errors by provider and kind",
			},
			[]string{"provider", "kind"},
		),

		bansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bans_total",
				Help:      "Total number of credential bans by provider and reason",
			},
			[]string{"provider", "reason"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens processed by provider, model and type",
			},
			[]string{"provider", "model", "type"},
		),

		credentials: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "credentials",
				Help:      "Credential pool state (available, banned, total)",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.errorsTotal,
		c.bansTotal,
		c.tokensTotal,
		c.credentials,
	)

	return c
}

// RecordRequest records one completed request.
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(provider, model, status).Inc()
	c.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens records token counts split by type.
func (c *Collector) RecordTokens(provider, model string, usage providers.Usage) {
	if usage.PromptTokens > 0 {
		c.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		c.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
	if usage.ReasoningTokens > 0 {
		c.tokensTotal.WithLabelValues(provider, model, "reasoning").Add(float64(usage.ReasoningTokens))
	}
}

// RecordError records one upstream error.
func (c *Collector) RecordError(provider, kind string) {
	c.errorsTotal.WithLabelValues(provider, kind).Inc()
}

// RecordBan records one credential ban.
func (c *Collector) RecordBan(provider string, reason credential.BanReason) {
	c.bansTotal.WithLabelValues(provider, string(reason)).Inc()
}

// UpdatePool refreshes the credential pool gauges.
func (c *Collector) UpdatePool(stats credential.Stats) {
	c.credentials.WithLabelValues("total").Set(float64(stats.Total))
	c.credentials.WithLabelValues("available").Set(float64(stats.Available))
	c.credentials.WithLabelValues("banned").Set(float64(stats.Banned))
}

// Handler returns the /metrics HTTP handler. Pool gauges are refreshed on
// each scrape.
func (c *Collector) Handler(store *credential.Store) http.Handler {
	inner := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			c.UpdatePool(store.Stats())
		}
		inner.ServeHTTP(w, r)
	})
}
