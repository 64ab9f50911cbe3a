package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/taller-agenda-api/internal/models"
)

// Seat reservation outcomes.
const (
	ReservationResultReserved = "reserved"
	ReservationResultConflict = "conflict"
	ReservationResultError    = "error"
)

// Email delivery outcomes.
const (
	EmailResultSent    = "sent"
	EmailResultFailed  = "failed"
	EmailResultRetried = "retried"
	EmailResultDropped = "dropped"
)

// MetricsService owns the Prometheus registry and the collectors the API reports on.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheLookups      *prometheus.CounterVec
	seatReservations  *prometheus.CounterVec
	creditsCreated    *prometheus.CounterVec
	notificationMails *prometheus.CounterVec
	agendaOccurrences prometheus.Histogram
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by outcome",
	}, []string{"result"})

	seatReservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seat_reservations_total",
		Help: "Seat reservation attempts by outcome",
	}, []string{"result"})

	creditsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "makeup_credits_created_total",
		Help: "Make-up credits issued by kind",
	}, []string{"kind"})

	notificationMails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_total",
		Help: "Notification emails by delivery outcome",
	}, []string{"result"})

	agendaOccurrences := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agenda_items_per_request",
		Help:    "Number of agenda items returned per request",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		seatReservations, creditsCreated, notificationMails, agendaOccurrences, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheLookups:      cacheLookups,
		seatReservations:  seatReservations,
		creditsCreated:    creditsCreated,
		notificationMails: notificationMails,
		agendaOccurrences: agendaOccurrences,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSeatReservation counts a reservation attempt.
func (m *MetricsService) RecordSeatReservation(result string) {
	if m == nil {
		return
	}
	m.seatReservations.WithLabelValues(result).Inc()
}

// RecordCreditsCreated counts issued make-up credits.
func (m *MetricsService) RecordCreditsCreated(kind models.CreditKind, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.creditsCreated.WithLabelValues(string(kind)).Add(float64(n))
}

// RecordNotificationEmail counts an email delivery outcome.
func (m *MetricsService) RecordNotificationEmail(result string) {
	if m == nil {
		return
	}
	m.notificationMails.WithLabelValues(result).Inc()
}

// ObserveAgendaItems records the size of an agenda response.
func (m *MetricsService) ObserveAgendaItems(n int) {
	if m == nil {
		return
	}
	m.agendaOccurrences.Observe(float64(n))
}
