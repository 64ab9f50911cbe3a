package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

type occurrenceService interface {
	ParseWindow(fromRaw, toRaw string) (models.Window, error)
	ForEnrollment(ctx context.Context, enrollmentID string, window models.Window) ([]models.Occurrence, error)
}

// OccurrenceHandler exposes the dated occurrences of an enrollment.
type OccurrenceHandler struct {
	service occurrenceService
}

// NewOccurrenceHandler builds a new handler.
func NewOccurrenceHandler(service occurrenceService) *OccurrenceHandler {
	return &OccurrenceHandler{service: service}
}

// List godoc
// @Summary Expand an enrollment into dated occurrences
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param from query string false "First date (YYYY-MM-DD), defaults to today"
// @Param to query string false "Last date (YYYY-MM-DD), defaults to two months ahead"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/occurrences [get]
func (h *OccurrenceHandler) List(c *gin.Context) {
	window, err := h.service.ParseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	occurrences, err := h.service.ForEnrollment(c.Request.Context(), c.Param("id"), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, nil, map[string]interface{}{
		"from":  string(models.DateKeyOf(window.Start)),
		"to":    string(models.DateKeyOf(window.End)),
		"count": len(occurrences),
	})
}
