// Package metrics exposes the gateway's Prometheus collectors.
//
// A Gateway owns a private registry so that several instances can coexist
// in one process (tests in particular). Handler serves that registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/completion"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "coursebook"

// Gateway collects request, pending-entry, publish and completion metrics.
//
// It implements pending.Observer, completion.Listener and
// broker.FailureObserver so it can be wired straight into those components.
type Gateway struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	closures        *prometheus.CounterVec
	waitTime        *prometheus.HistogramVec
	publishFailures *prometheus.CounterVec
	completions     *prometheus.CounterVec
	lateCompletions *prometheus.CounterVec
}

// NewGateway creates and registers the gateway collectors under namespace.
func NewGateway(namespace string) *Gateway {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	g := &Gateway{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		closures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_closed_total",
			Help:      "Pending entries closed by action and disposition",
		}, []string{"action", "disposition"}),
		waitTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pending_wait_seconds",
			Help:      "Time a pending entry waited before closing, by action",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"action"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Failed broker publishes by routing key and kind",
		}, []string{"routing_key", "kind"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion events routed, by action",
		}, []string{"action"}),
		lateCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_completions_total",
			Help:      "Completion events with no pending entry, by action",
		}, []string{"action"}),
	}

	g.registry.MustRegister(
		g.requests, g.latency, g.closures, g.waitTime,
		g.publishFailures, g.completions, g.lateCompletions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return g
}

// TrackPending exposes a gauge reading the current pending-entry count.
func (g *Gateway) TrackPending(namespace string, count func() int) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	g.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_entries",
		Help:      "Requests currently waiting for a completion",
	}, func() float64 { return float64(count()) }))
}

// ObserveRequest records one HTTP request.
func (g *Gateway) ObserveRequest(method, route string, status int, durationSeconds float64) {
	g.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	g.latency.WithLabelValues(method, route).Observe(durationSeconds)
}

// EntryClosed implements pending.Observer.
func (g *Gateway) EntryClosed(c pending.Closure) {
	g.closures.WithLabelValues(string(c.Kind), string(c.Disposition)).Inc()
	g.waitTime.WithLabelValues(string(c.Kind)).Observe(c.Age.Seconds())
}

// CompletionRouted implements completion.Listener.
func (g *Gateway) CompletionRouted(ev completion.Event, _ pending.Outcome, delivered bool) {
	action := actionLabel(ev.ActionKind)
	g.completions.WithLabelValues(action).Inc()
	if !delivered {
		g.lateCompletions.WithLabelValues(action).Inc()
	}
}

// PublishFailed implements broker.FailureObserver.
func (g *Gateway) PublishFailed(routingKey string, kind broker.PublishErrorKind) {
	g.publishFailures.WithLabelValues(routingKey, kind.String()).Inc()
}

// actionLabel keeps the action label bounded; completion events arrive from
// outside the process.
func actionLabel(kind string) string {
	switch pending.ActionKind(kind) {
	case pending.Registration, pending.CourseCreate, pending.WishCreate:
		return kind
	default:
		return "other"
	}
}

// Registry returns the underlying registry.
func (g *Gateway) Registry() *prometheus.Registry {
	return g.registry
}

// Handler returns an HTTP handler for /metrics.
func (g *Gateway) Handler() http.Handler {
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}
