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

type creditService interface {
	ListAvailable(ctx context.Context, studentID string) ([]models.MakeUpCreditDetail, error)
	ListHistory(ctx context.Context, studentID string) ([]models.MakeUpCreditDetail, error)
	Schedule(ctx context.Context, studentID, creditID string, req service.ScheduleCreditRequest) (*models.MakeUpCredit, error)
}

type studentAccessChecker interface {
	Ensure(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.Student, error)
}

// CreditHandler exposes a student's make-up credits.
type CreditHandler struct {
	service creditService
	access  studentAccessChecker
}

// NewCreditHandler builds a new handler.
func NewCreditHandler(service creditService, access studentAccessChecker) *CreditHandler {
	return &CreditHandler{service: service, access: access}
}

// Available godoc
// @Summary List unused make-up credits of a student
// @Tags Credits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/credits [get]
func (h *CreditHandler) Available(c *gin.Context) {
	h.list(c, h.service.ListAvailable)
}

// History godoc
// @Summary List used make-up credits of a student
// @Tags Credits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/credits/history [get]
func (h *CreditHandler) History(c *gin.Context) {
	h.list(c, h.service.ListHistory)
}

func (h *CreditHandler) list(c *gin.Context, fetch func(context.Context, string) ([]models.MakeUpCreditDetail, error)) {
	studentID := c.Param("id")
	if _, err := h.access.Ensure(c.Request.Context(), claimsFromContext(c), studentID); err != nil {
		response.Error(c, err)
		return
	}
	credits, err := fetch(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credits, nil)
}

// Schedule godoc
// @Summary Redeem a credit into a make-up session
// @Tags Credits
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param creditId path string true "Credit ID"
// @Param payload body service.ScheduleCreditRequest true "Target date and time block"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/credits/{creditId}/schedule [post]
func (h *CreditHandler) Schedule(c *gin.Context) {
	studentID := c.Param("id")
	if _, err := h.access.Ensure(c.Request.Context(), claimsFromContext(c), studentID); err != nil {
		response.Error(c, err)
		return
	}
	var req service.ScheduleCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	credit, err := h.service.Schedule(c.Request.Context(), studentID, c.Param("creditId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credit, nil)
}
