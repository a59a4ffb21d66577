package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nutrition-engine/internal/core/food"
)

const namespace = "nutrition"

var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// Collector 服務的 Prometheus 指標，使用獨立 registry
type Collector struct {
	registry *prometheus.Registry

	resolutions    *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
	lookupFailures *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewCollector 創建並註冊所有指標；withRuntime 為 true 時附帶 Go 與 process 指標
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Food resolutions by source and match tier.",
		}, []string{"source", "tier"}),
		resolveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving a single food candidate.",
			Buckets:   defaultBuckets,
		}, []string{"source"}),
		lookupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "lookup_failures_total",
			Help:      "Corpus read failures folded into no result.",
		}, []string{"corpus", "strategy"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   defaultBuckets,
		}, []string{"route", "method"}),
	}

	c.registry.MustRegister(c.resolutions, c.resolveLatency, c.lookupFailures, c.httpRequests, c.httpLatency)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
	}
	return c
}

// ObserveResolution 實作 food.Metrics
func (c *Collector) ObserveResolution(source food.Source, tier food.Tier, d time.Duration) {
	c.resolutions.WithLabelValues(string(source), string(tier)).Inc()
	c.resolveLatency.WithLabelValues(string(source)).Observe(d.Seconds())
}

// LookupFailed 實作 food.Metrics
func (c *Collector) LookupFailed(corpus food.Source, strategy food.Tier) {
	c.lookupFailures.WithLabelValues(string(corpus), string(strategy)).Inc()
}

// ObserveRequest 由 HTTP 中間件呼叫
func (c *Collector) ObserveRequest(route, method string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler /metrics 端點
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry 供測試與額外的 collector 使用
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

var _ food.Metrics = (*Collector)(nil)
