package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

type calendarExceptionService interface {
	List(ctx context.Context, fromRaw, toRaw string) ([]models.NonWorkingDay, error)
	Declare(ctx context.Context, req service.DeclareNonWorkingDayRequest) (*dto.NonWorkingDaySummary, error)
	Revert(ctx context.Context, dateRaw string) (*dto.RevertNonWorkingDayResult, error)
}

// NonWorkingDayHandler manages the non-working day registry.
type NonWorkingDayHandler struct {
	service calendarExceptionService
}

// NewNonWorkingDayHandler builds a new handler.
func NewNonWorkingDayHandler(service calendarExceptionService) *NonWorkingDayHandler {
	return &NonWorkingDayHandler{service: service}
}

// List godoc
// @Summary List declared non-working days
// @Tags NonWorkingDays
// @Produce json
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /non-working-days [get]
func (h *NonWorkingDayHandler) List(c *gin.Context) {
	days, err := h.service.List(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// Declare godoc
// @Summary Declare a non-working day
// @Description Records the date and issues credits, transfers and notifications to every affected enrollment.
// @Tags NonWorkingDays
// @Accept json
// @Produce json
// @Param payload body service.DeclareNonWorkingDayRequest true "Declaration"
// @Success 201 {object} response.Envelope
// @Router /non-working-days [post]
func (h *NonWorkingDayHandler) Declare(c *gin.Context) {
	var req service.DeclareNonWorkingDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid non-working day payload"))
		return
	}
	summary, err := h.service.Declare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, summary)
}

// Revert godoc
// @Summary Turn a non-working day back into a working day
// @Description Issued credits and notifications are kept. removed is false when nothing was declared.
// @Tags NonWorkingDays
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /non-working-days/{date} [delete]
func (h *NonWorkingDayHandler) Revert(c *gin.Context) {
	result, err := h.service.Revert(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
