package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/taller-agenda-api/api/swagger"
	"github.com/noah-isme/taller-agenda-api/internal/handler"
	"github.com/noah-isme/taller-agenda-api/internal/repository"
	"github.com/noah-isme/taller-agenda-api/internal/service"
	"github.com/noah-isme/taller-agenda-api/pkg/cache"
	"github.com/noah-isme/taller-agenda-api/pkg/config"
	"github.com/noah-isme/taller-agenda-api/pkg/database"
	"github.com/noah-isme/taller-agenda-api/pkg/jobs"
	"github.com/noah-isme/taller-agenda-api/pkg/logger"
	"github.com/noah-isme/taller-agenda-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/taller-agenda-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/taller-agenda-api/pkg/middleware/requestid"
)

// @title Taller Agenda API
// @version 1.0.0
// @description Scheduling backend for an art workshop: seats, non-working days, make-up credits and the agenda.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	dependencies := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Agenda.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, agenda cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			dependencies["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
	}

	loc := cfg.Scheduling.Location()
	validate := validator.New()
	metrics := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	workshopRepo := repository.NewWorkshopRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	creditRepo := repository.NewMakeUpCreditRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var agendaCache *service.AgendaCache
	if redisClient != nil {
		cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Agenda.CacheTTL, logr, true)
		agendaCache = service.NewAgendaCache(cacheSvc, cfg.Agenda.CacheTTL)
	}

	notifications := service.NewNotificationService(notificationRepo, mailer.New(cfg.Mail, logr), metrics, logr)
	retryQueue := jobs.NewQueue("email-retry", notifications.HandleEmailRetry, jobs.QueueConfig{
		Workers:    cfg.Mail.RetryWorkers,
		MaxRetries: cfg.Mail.RetryAttempts,
		RetryDelay: cfg.Mail.RetryDelay,
		OnGiveUp:   notifications.EmailGaveUp,
		Logger:     logr,
	})
	notifications.SetRetryQueue(retryQueue)
	retryQueue.Start(ctx)
	defer retryQueue.Stop()

	expander := service.NewOccurrenceExpander(service.ExpanderOptions{
		Location:            loc,
		SeasonEnd:           seasonEnd(cfg.Scheduling, loc, logr),
		WindowBackMonths:    cfg.Scheduling.WindowBackMonths,
		WindowForwardMonths: cfg.Scheduling.WindowForwardMonths,
	}, logr)

	access := service.NewStudentAccess(studentRepo)
	svc := services{
		auth: service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
		}),
		occurrences: service.NewOccurrenceService(enrollmentRepo, calendarRepo, expander, logr),
		seats:       service.NewSeatService(enrollmentRepo, workshopRepo, studentRepo, agendaCache, metrics, validate, logr),
		calendar: service.NewCalendarExceptionService(calendarRepo, enrollmentRepo, creditRepo, studentRepo, notifications,
			agendaCache, metrics, loc, validate, logr),
		credits: service.NewMakeUpCreditService(creditRepo, workshopRepo, enrollmentRepo, calendarRepo, agendaCache,
			cfg.Scheduling.DefaultTimeBlocks, loc, validate, logr),
		agenda: service.NewAgendaService(enrollmentRepo, placementRepo, studentRepo, calendarRepo, expander, agendaCache, metrics,
			service.AgendaOptions{DefaultDays: cfg.Agenda.DefaultDays, MaxDays: cfg.Agenda.MaxDays}, logr),
		placements: service.NewPlacementService(placementRepo, calendarRepo, access, agendaCache, loc, validate, logr),
		access:     access,
		metrics:    metrics,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	registerRoutes(r, cfg, svc, dependencies)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func seasonEnd(cfg config.SchedulingConfig, loc *time.Location, logr *zap.Logger) time.Time {
	if cfg.SummerSeasonEnd == "" {
		return time.Time{}
	}
	end, err := time.ParseInLocation("2006-01-02", cfg.SummerSeasonEnd, loc)
	if err != nil {
		logr.Warn("ignoring invalid SUMMER_SEASON_END", zap.String("value", cfg.SummerSeasonEnd), zap.Error(err))
		return time.Time{}
	}
	return end
}
