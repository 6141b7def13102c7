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

	_ "github.com/noah-isme/vtc-admin-api/api/swagger"
	"github.com/noah-isme/vtc-admin-api/internal/handler"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	"github.com/noah-isme/vtc-admin-api/internal/router"
	"github.com/noah-isme/vtc-admin-api/internal/service"
	"github.com/noah-isme/vtc-admin-api/pkg/cache"
	"github.com/noah-isme/vtc-admin-api/pkg/config"
	"github.com/noah-isme/vtc-admin-api/pkg/database"
	"github.com/noah-isme/vtc-admin-api/pkg/jobs"
	"github.com/noah-isme/vtc-admin-api/pkg/logger"
	"github.com/noah-isme/vtc-admin-api/pkg/validation"
)

// @title VTC Admin API
// @version 1.0.0
// @description Vocational training centre administration: departments, students, registration and staff notifications.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, "vtc:")
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	departmentRepo := repository.NewDepartmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	notificationSvc := service.NewNotificationService(userRepo, notificationRepo, metricsSvc, logr, service.NotificationConfig{
		BatchSize: cfg.Notifications.BatchSize,
	})
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	if cfg.Notifications.Async {
		notificationQueue.Start(context.Background())
		defer notificationQueue.Stop()
		notificationSvc.UseQueue(notificationQueue)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	departmentSvc := service.NewDepartmentService(departmentRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(service.StudentServiceParams{
		Repo:        studentRepo,
		Departments: departmentRepo,
		Notifier:    notificationSvc,
		Cache:       cacheSvc,
		Validator:   validate,
		Logger:      logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stats:    dashboardRepo,
		Students: studentRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			RecentLimit: cfg.Dashboard.RecentLimit,
		},
	})
	exportSvc := service.NewExportService(studentRepo, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metricsSvc,
		Auth:           authSvc,
	}, router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Departments:   handler.NewDepartmentHandler(departmentSvc),
		Students:      handler.NewStudentHandler(studentSvc, exportSvc),
		Registration:  handler.NewRegistrationHandler(departmentSvc, studentSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Ops:           handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
