package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/taller-agenda-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"postgres": healthy})

	c, w := newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)

	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	handler = NewMetricsHandler(nil, map[string]Pinger{"postgres": healthy, "redis": down})
	c, w = newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSeatReservation(service.ReservationResultConflict)
	handler := NewMetricsHandler(metrics, nil)

	c, w := newTestContext(http.MethodGet, "/metrics", nil, nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "seat_reservations_total")

	c, w = newTestContext(http.MethodGet, "/metrics", nil, nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
