package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal       *prometheus.CounterVec
	ragRetrievalHitTotal   *prometheus.CounterVec
	ragNoContextTotal      *prometheus.CounterVec
	ragContextDocs         *prometheus.HistogramVec
	ragDuration            *prometheus.HistogramVec
	rerankParseFallbackTot *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ara",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ara",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ara",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful RAG answers by retrieval mode.",
		},
		[]string{"service", "mode"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total answers backed by at least one reference.",
		},
		[]string{"service"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total answers generated without any references.",
		},
		[]string{"service"},
	)
	ragContextDocs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "context_documents",
			Help:      "Distribution of context documents per answer.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Answer pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	rerankParseFallbackTot := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ara",
			Subsystem: "rag",
			Name:      "rerank_parse_fallback_total",
			Help:      "Total reranker score tokens that defaulted to zero.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragContextDocs,
		ragDuration,
		rerankParseFallbackTot,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		ragRequestsTotal:       ragRequestsTotal,
		ragRetrievalHitTotal:   ragRetrievalHitTotal,
		ragNoContextTotal:      ragNoContextTotal,
		ragContextDocs:         ragContextDocs,
		ragDuration:            ragDuration,
		rerankParseFallbackTot: rerankParseFallbackTot,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAnswer(service, mode string, referenceCount int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.ragRequestsTotal.WithLabelValues(service, mode).Inc()
	m.ragContextDocs.WithLabelValues(service).Observe(float64(referenceCount))
	m.ragDuration.WithLabelValues(service, mode).Observe(duration.Seconds())

	if referenceCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRerankParseFallback(service string, count int) {
	if count <= 0 {
		return
	}
	m.rerankParseFallbackTot.WithLabelValues(service).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
