package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking
// engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	reservationsCreated  prometheus.Counter
	reservationConflicts prometheus.Counter
	transitions          *prometheus.CounterVec
	slotCacheHits        prometheus.Counter
	slotCacheMisses      prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reservationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total reservations successfully created",
	})

	reservationConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Total reservation attempts rejected by the overlap gate",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Total reservation status transitions",
	}, []string{"status"})

	slotCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_cache_hits_total",
		Help: "Total slot cache hits",
	})

	slotCacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_cache_misses_total",
		Help: "Total slot cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reservationsCreated, reservationConflicts, transitions, slotCacheHits, slotCacheMisses, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		reservationsCreated:  reservationsCreated,
		reservationConflicts: reservationConflicts,
		transitions:          transitions,
		slotCacheHits:        slotCacheHits,
		slotCacheMisses:      slotCacheMisses,
	}
}

// Handler exposes the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveReservationCreated counts a successful booking.
func (m *MetricsService) ObserveReservationCreated() {
	if m == nil {
		return
	}
	m.reservationsCreated.Inc()
}

// ObserveReservationConflict counts an attempt rejected by the overlap gate.
func (m *MetricsService) ObserveReservationConflict() {
	if m == nil {
		return
	}
	m.reservationConflicts.Inc()
}

// ObserveTransition counts a lifecycle transition into the given status.
func (m *MetricsService) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// ObserveSlotCache counts a slot cache lookup.
func (m *MetricsService) ObserveSlotCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.slotCacheHits.Inc()
		return
	}
	m.slotCacheMisses.Inc()
}
