package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/taller-agenda-api/internal/handler"
	"github.com/noah-isme/taller-agenda-api/internal/middleware"
	"github.com/noah-isme/taller-agenda-api/internal/models"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	"github.com/noah-isme/taller-agenda-api/pkg/config"
)

type services struct {
	auth        *service.AuthService
	occurrences *service.OccurrenceService
	seats       *service.SeatService
	calendar    *service.CalendarExceptionService
	credits     *service.MakeUpCreditService
	agenda      *service.AgendaService
	placements  *service.PlacementService
	access      *service.StudentAccess
	metrics     *service.MetricsService
}

func registerRoutes(r *gin.Engine, cfg *config.Config, svc services, dependencies map[string]handler.Pinger) {
	metricsHandler := handler.NewMetricsHandler(svc.metrics, dependencies)
	occurrenceHandler := handler.NewOccurrenceHandler(svc.occurrences)
	seatHandler := handler.NewSeatHandler(svc.seats)
	nonWorkingDayHandler := handler.NewNonWorkingDayHandler(svc.calendar)
	creditHandler := handler.NewCreditHandler(svc.credits, svc.access)
	agendaHandler := handler.NewAgendaHandler(svc.agenda)
	placementHandler := handler.NewPlacementHandler(svc.placements)

	r.Use(middleware.Metrics(svc.metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(svc.auth))
	admin := middleware.AdminOnly()
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleFamily)

	api.GET("/enrollments/:id/occurrences", admin, occurrenceHandler.List)

	api.GET("/seats", anyRole, seatHandler.Availability)
	api.POST("/seats/reservations", admin, seatHandler.Reserve)

	api.GET("/non-working-days", anyRole, nonWorkingDayHandler.List)
	api.POST("/non-working-days", admin, nonWorkingDayHandler.Declare)
	api.DELETE("/non-working-days/:date", admin, nonWorkingDayHandler.Revert)

	students := api.Group("/students/:id", anyRole)
	students.GET("/credits", creditHandler.Available)
	students.GET("/credits/history", creditHandler.History)
	students.POST("/credits/:creditId/schedule", creditHandler.Schedule)

	api.GET("/agenda", admin, agendaHandler.Admin)
	api.GET("/agenda/export", admin, agendaHandler.Export)
	api.GET("/me/agenda", anyRole, agendaHandler.Family)

	placements := api.Group("/placements", anyRole)
	placements.POST("", placementHandler.Request)
	placements.PUT("/:id", placementHandler.Reschedule)
	placements.DELETE("/:id", placementHandler.Cancel)
}
