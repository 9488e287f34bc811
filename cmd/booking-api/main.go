package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/CanAhmet12/nazliyavuz-platform-sub000/api/swagger"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/handler"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/middleware"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/notification"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/repository"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/service"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/cache"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/config"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/database"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/jobs"
	"github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/logger"
	corsmiddleware "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/CanAhmet12/nazliyavuz-platform-sub000/pkg/middleware/requestid"
)

// @title Booking & Availability API
// @version 1.0.0
// @description Recurring availability windows, slot generation and the reservation lifecycle for the tutoring marketplace.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	defaultLocation, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid booking timezone, falling back to UTC", "timezone", cfg.Booking.Timezone)
		defaultLocation = time.UTC
	}

	// Repositories.
	availabilityRepo := repository.NewAvailabilityRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, slot caching disabled", "error", err)
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}

	// Background side-effect queues.
	queueCfg := jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}
	dispatcher := notification.NewDispatcher(notificationRepo, queueCfg)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	auditRecorder := service.NewAuditRecorder(auditRepo, queueCfg)
	auditRecorder.Start(ctx)
	defer auditRecorder.Stop()

	// Services.
	validate := validator.New()
	metrics := service.NewMetricsService()
	identity := service.NewIdentityService(cfg.JWT.Secret)
	var slotCache *service.SlotCache
	if cacheRepo != nil {
		slotCache = service.NewSlotCache(cacheRepo, cfg.Booking.SlotCacheTTL, logr)
	}
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, teacherRepo, slotCache, auditRecorder, validate, logr)
	slotSvc := service.NewSlotService(availabilityRepo, reservationRepo, teacherRepo, slotCache, metrics, cfg.Booking.SlotDurationMinutes, defaultLocation, logr)
	reservationSvc := service.NewReservationService(reservationRepo, teacherRepo, slotCache, dispatcher, auditRecorder, metrics,
		cfg.Booking.MinDurationMinutes, cfg.Booking.MaxDurationMinutes, validate, logr)

	// Handlers.
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	slotHandler := handler.NewSlotHandler(slotSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	teacherHandler := handler.NewTeacherHandler(teacherRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	auditHandler := handler.NewAuditHandler(auditRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public read side.
	api.GET("/teachers/:teacherId/availability", availabilityHandler.List)
	api.GET("/teachers/:teacherId/slots", slotHandler.List)
	api.GET("/teachers/:teacherId/categories", teacherHandler.Categories)

	secured := api.Group("", middleware.JWT(identity))

	teacherOnly := secured.Group("", middleware.RequireRoles(models.RoleTeacher))
	teacherOnly.POST("/availability", availabilityHandler.Create)
	teacherOnly.PATCH("/availability/:id", availabilityHandler.Update)
	teacherOnly.DELETE("/availability/:id", availabilityHandler.Delete)
	teacherOnly.POST("/reservations/:id/respond", reservationHandler.Respond)

	studentOnly := secured.Group("", middleware.RequireRoles(models.RoleStudent))
	studentOnly.POST("/reservations", reservationHandler.Create)
	studentOnly.PATCH("/reservations/:id", reservationHandler.Update)
	studentOnly.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	secured.GET("/reservations", reservationHandler.List)
	secured.GET("/reservations/:id", reservationHandler.Get)
	secured.GET("/notifications", notificationHandler.List)

	adminOnly := secured.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	adminOnly.PUT("/reservations/:id/status", reservationHandler.AdminSetStatus)
	adminOnly.POST("/reservations/:id/complete", reservationHandler.Complete)
	adminOnly.GET("/reservations/:id/audit", auditHandler.ReservationTrail)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
