// Package metrics exposes Prometheus metrics for predictions, feed fetches,
// deliveries and the REST API.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Alias1177/WinGoTrader/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Manager owns the collectors. It implements session.Recorder, wingo.Observer
// and notify.Observer.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	predictions  *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	feedFetches  *prometheus.CounterVec
	feedLatency  prometheus.Histogram
	deliveries   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	liveSessions prometheus.Gauge
}

// NewManager registers every collector on a fresh registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wingo",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "predictions_total",
		Help:      "Predictor runs by result status and winning rule",
	}, []string{"status", "rule"})

	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "prediction_outcomes_total",
		Help:      "Judged predictions by result",
	}, []string{"result"})

	m.feedFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "feed_fetches_total",
		Help:      "History feed fetches by result",
	}, []string{"result"})

	m.feedLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "feed_fetch_duration_seconds",
		Help:      "History feed fetch latency",
		Buckets:   m.histogramBuckets,
	})

	m.deliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "deliveries_total",
		Help:      "Exported prediction deliveries by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "REST requests by route, method and status",
	}, []string{"route", "method", "status"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "REST request latency",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	m.liveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "sessions_open",
		Help:      "Sessions currently held in memory",
	})
}

// Registry is the gatherer behind Handler.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends every collector to a Pushgateway under job. Short-lived
// commands use it instead of serving /metrics.
func (m *Manager) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Prediction counts one predictor run.
func (m *Manager) Prediction(p models.Prediction) {
	if !m.enabled {
		return
	}
	rule := p.Rule
	if rule == "" {
		rule = "none"
	}
	m.predictions.WithLabelValues(string(p.Status), rule).Inc()
}

// Outcome counts a judged prediction.
func (m *Manager) Outcome(win bool) {
	if !m.enabled {
		return
	}
	m.outcomes.WithLabelValues(result(win)).Inc()
}

// ObserveFetch records one history feed fetch.
func (m *Manager) ObserveFetch(err error, elapsed time.Duration) {
	if !m.enabled {
		return
	}
	m.feedFetches.WithLabelValues(errResult(err)).Inc()
	m.feedLatency.Observe(elapsed.Seconds())
}

// ObserveDelivery records one export delivery.
func (m *Manager) ObserveDelivery(err error) {
	if !m.enabled {
		return
	}
	m.deliveries.WithLabelValues(errResult(err)).Inc()
}

// SessionOpened and SessionClosed track the in-memory session count.
func (m *Manager) SessionOpened() {
	if m.enabled {
		m.liveSessions.Inc()
	}
}

func (m *Manager) SessionClosed() {
	if m.enabled {
		m.liveSessions.Dec()
	}
}

// Middleware records chi requests by route pattern.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func result(win bool) string {
	if win {
		return "win"
	}
	return "loss"
}

func errResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
