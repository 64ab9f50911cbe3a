package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/middleware"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
)

type seatServiceMock struct {
	mapResp     *dto.SeatAvailability
	reserveResp *dto.SeatReservationResult
	reserveErr  error
	lastDay     string
	lastRange   string
	lastReq     service.ReserveSeatRequest
}

func (m *seatServiceMock) SeatMap(ctx context.Context, day, timeRange, workshopID string) (*dto.SeatAvailability, error) {
	m.lastDay, m.lastRange = day, timeRange
	return m.mapResp, nil
}

func (m *seatServiceMock) Reserve(ctx context.Context, req service.ReserveSeatRequest) (*dto.SeatReservationResult, error) {
	m.lastReq = req
	return m.reserveResp, m.reserveErr
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var testAdmin = &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

func TestSeatHandlerAvailability(t *testing.T) {
	mock := &seatServiceMock{mapResp: &dto.SeatAvailability{Day: "MARTES", TimeRange: "17:30-18:50", Occupied: []int{1, 5}}}
	handler := NewSeatHandler(mock)

	c, w := newTestContext(http.MethodGet, "/seats?day=Martes&timeRange=17:30-18:50", nil, testAdmin)
	handler.Availability(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Martes", mock.lastDay)
	var seats dto.SeatAvailability
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &seats))
	assert.Equal(t, []int{1, 5}, seats.Occupied)

	c, w = newTestContext(http.MethodGet, "/seats?day=Martes", nil, testAdmin)
	handler.Availability(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeatHandlerReserveConflict(t *testing.T) {
	mock := &seatServiceMock{reserveErr: appErrors.Clone(appErrors.ErrSeatTaken, "seat 5 already taken for MARTES 17:30-18:50")}
	handler := NewSeatHandler(mock)

	body, _ := json.Marshal(service.ReserveSeatRequest{StudentID: "s1", WorkshopID: "w1", Days: []string{"Martes"}, TimeRange: "17:30-18:50", Seat: 5, Phase: "Regular"})
	c, w := newTestContext(http.MethodPost, "/seats/reservations", body, testAdmin)
	handler.Reserve(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SEAT_TAKEN", env.Error.Code)
	assert.Contains(t, env.Error.Message, "seat 5")
	assert.Equal(t, 5, mock.lastReq.Seat)
}

func TestSeatHandlerReserveCreated(t *testing.T) {
	mock := &seatServiceMock{reserveResp: &dto.SeatReservationResult{EnrollmentID: "enr-1", Seat: 2}}
	handler := NewSeatHandler(mock)

	c, w := newTestContext(http.MethodPost, "/seats/reservations", []byte(`{"studentId":"s1","workshopId":"w1","days":["Lunes"],"timeRange":"16:00-17:20","seat":2,"phase":"Regular"}`), testAdmin)
	handler.Reserve(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext(http.MethodPost, "/seats/reservations", []byte(`{"seat":`), testAdmin)
	handler.Reserve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
