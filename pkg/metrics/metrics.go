// Package metrics exposes Prometheus instrumentation for ingest runs and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ArionMiles/momoledger/pkg/api"
)

const namespace = "momoledger"

// Recorder counts parser outcomes and HTTP traffic. It implements parser.Observer.
type Recorder struct {
	registry *prometheus.Registry

	messagesTotal       *prometheus.CounterVec
	rejectionsTotal     *prometheus.CounterVec
	recordsTotal        *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Recorder backed by its own registry, which also carries the
// Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_processed_total",
				Help:      "Messages processed by outcome (accepted or rejected).",
			},
			[]string{"outcome"},
		),
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejections by reason code and whether they dropped the message.",
			},
			[]string{"reason", "fatal"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Accepted records by transaction type and status.",
			},
			[]string{"type", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		r.messagesTotal,
		r.rejectionsTotal,
		r.recordsTotal,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	)
	return r
}

// Registry returns the registry the Recorder's collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Accepted(record *api.TransactionRecord) {
	r.messagesTotal.WithLabelValues("accepted").Inc()
	r.recordsTotal.WithLabelValues(string(record.Type), string(record.Status)).Inc()
}

func (r *Recorder) Rejected(rejection api.Rejection) {
	if rejection.Fatal {
		r.messagesTotal.WithLabelValues("rejected").Inc()
	}
	r.rejectionsTotal.WithLabelValues(rejection.Reason, strconv.FormatBool(rejection.Fatal)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. route names the handler;
// when nil, the request path is used, which can explode label cardinality.
func (r *Recorder) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	if route == nil {
		route = func(req *http.Request) string { return req.URL.Path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, req)

			name := route(req)
			r.httpRequestDuration.
				WithLabelValues(req.Method, name).
				Observe(time.Since(start).Seconds())

			r.httpRequestsTotal.
				WithLabelValues(req.Method, name, strconv.Itoa(rec.status)).
				Inc()
		})
	}
}
