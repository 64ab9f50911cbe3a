package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

type placementService interface {
	Request(ctx context.Context, claims *models.JWTClaims, req service.RequestPlacementRequest) (*models.PlacementAppointment, error)
	Reschedule(ctx context.Context, claims *models.JWTClaims, id string, req service.ReschedulePlacementRequest) (*models.PlacementDetail, error)
	Cancel(ctx context.Context, claims *models.JWTClaims, id string) error
}

// PlacementHandler manages placement appointments.
type PlacementHandler struct {
	service placementService
}

// NewPlacementHandler builds a new handler.
func NewPlacementHandler(service placementService) *PlacementHandler {
	return &PlacementHandler{service: service}
}

// Request godoc
// @Summary Request a placement appointment
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body service.RequestPlacementRequest true "Appointment"
// @Success 201 {object} response.Envelope
// @Router /placements [post]
func (h *PlacementHandler) Request(c *gin.Context) {
	var req service.RequestPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid placement payload"))
		return
	}
	appt, err := h.service.Request(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Reschedule godoc
// @Summary Move a pending placement appointment
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body service.ReschedulePlacementRequest true "New time"
// @Success 200 {object} response.Envelope
// @Router /placements/{id} [put]
func (h *PlacementHandler) Reschedule(c *gin.Context) {
	var req service.ReschedulePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid placement payload"))
		return
	}
	appt, err := h.service.Reschedule(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Cancel godoc
// @Summary Cancel a pending placement appointment
// @Tags Placements
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /placements/{id} [delete]
func (h *PlacementHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
