// Package metrics exposes checkout counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "order_intent"

type Recorder struct {
	registry *prometheus.Registry

	intentsCreated    *prometheus.CounterVec
	intentsClosed     *prometheus.CounterVec
	insufficientStock prometheus.Counter
	sweepLocks        *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		intentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Order intents returned by create, split by whether an active intent was reused.",
		}, []string{"reused"}),
		intentsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "closed_total",
			Help:      "Order intents that left INTENT_CREATED, by final status.",
		}, []string{"status"}),
		insufficientStock: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_stock_total",
			Help:      "Create attempts refused because a variant ran out.",
		}),
		sweepLocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_intents_total",
			Help:      "Intents handled by the expiry reaper, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaper_sweep_seconds",
			Help:      "Duration of one reaper sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (r *Recorder) IntentCreated(reused bool) {
	r.intentsCreated.WithLabelValues(strconv.FormatBool(reused)).Inc()
}

func (r *Recorder) IntentClosed(status domain.IntentStatus) {
	r.intentsClosed.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) InsufficientStock() {
	r.insufficientStock.Inc()
}

func (r *Recorder) SweepCompleted(expired, released, failed int, elapsed time.Duration) {
	r.sweepLocks.WithLabelValues("expired").Add(float64(expired))
	r.sweepLocks.WithLabelValues("released").Add(float64(released))
	r.sweepLocks.WithLabelValues("failed").Add(float64(failed))
	r.sweepDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request. route is the matched
// pattern, not the raw path.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
