package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/taller-agenda-api/internal/dto"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	appErrors "github.com/noah-isme/taller-agenda-api/pkg/errors"
	"github.com/noah-isme/taller-agenda-api/pkg/response"
)

type agendaService interface {
	Admin(ctx context.Context, days int) (*dto.AgendaResponse, error)
	Family(ctx context.Context, userID string, days int) (*dto.AgendaResponse, error)
	Export(ctx context.Context, days int, format string) (*service.AgendaExport, error)
}

// AgendaHandler serves the admin and family agendas.
type AgendaHandler struct {
	service agendaService
}

// NewAgendaHandler builds a new handler.
func NewAgendaHandler(service agendaService) *AgendaHandler {
	return &AgendaHandler{service: service}
}

// Admin godoc
// @Summary Agenda of every class and pending placement appointment
// @Tags Agenda
// @Produce json
// @Param days query int false "Number of days starting today"
// @Success 200 {object} response.Envelope
// @Router /agenda [get]
func (h *AgendaHandler) Admin(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	agenda, err := h.service.Admin(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agenda, nil)
}

// Family godoc
// @Summary Agenda of the caller's students
// @Tags Agenda
// @Produce json
// @Param days query int false "Number of days starting today"
// @Success 200 {object} response.Envelope
// @Router /me/agenda [get]
func (h *AgendaHandler) Family(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	days, ok := parseDays(c)
	if !ok {
		return
	}
	agenda, err := h.service.Family(c.Request.Context(), claims.UserID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agenda, nil)
}

// Export godoc
// @Summary Download the admin agenda
// @Tags Agenda
// @Produce text/csv
// @Produce application/pdf
// @Param days query int false "Number of days starting today"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /agenda/export [get]
func (h *AgendaHandler) Export(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	export, err := h.service.Export(c.Request.Context(), days, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, export.Filename, export.ContentType, export.Body)
}

func parseDays(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be an integer"))
		return 0, false
	}
	return days, true
}
