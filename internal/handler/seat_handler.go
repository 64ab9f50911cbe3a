package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

type seatService interface {
	SeatMap(ctx context.Context, dayRaw, timeRangeRaw, workshopID string) (*dto.SeatAvailability, error)
	Reserve(ctx context.Context, req service.ReserveSeatRequest) (*dto.SeatReservationResult, error)
}

// SeatHandler exposes seat availability and reservation endpoints.
type SeatHandler struct {
	service seatService
}

// NewSeatHandler builds a new handler.
func NewSeatHandler(service seatService) *SeatHandler {
	return &SeatHandler{service: service}
}

// Availability godoc
// @Summary List occupied seats of a (day, time range) slot
// @Tags Seats
// @Produce json
// @Param day query string true "Weekday, e.g. Lunes"
// @Param timeRange query string true "Time range, e.g. 16:00-17:20"
// @Param workshopId query string false "Workshop whose capacity bounds the free seats"
// @Success 200 {object} response.Envelope
// @Router /seats [get]
func (h *SeatHandler) Availability(c *gin.Context) {
	day, timeRange := c.Query("day"), c.Query("timeRange")
	if day == "" || timeRange == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day and timeRange are required"))
		return
	}
	seats, err := h.service.SeatMap(c.Request.Context(), day, timeRange, c.Query("workshopId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// Reserve godoc
// @Summary Reserve a seat by creating an active enrollment
// @Tags Seats
// @Accept json
// @Produce json
// @Param payload body service.ReserveSeatRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seats/reservations [post]
func (h *SeatHandler) Reserve(c *gin.Context) {
	var req service.ReserveSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	result, err := h.service.Reserve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
