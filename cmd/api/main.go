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

	_ "github.com/Amiineben/StudyWave-attendence/api/swagger"
	"github.com/Amiineben/StudyWave-attendence/internal/handler"
	"github.com/Amiineben/StudyWave-attendence/internal/middleware"
	"github.com/Amiineben/StudyWave-attendence/internal/models"
	"github.com/Amiineben/StudyWave-attendence/internal/repository"
	"github.com/Amiineben/StudyWave-attendence/internal/service"
	"github.com/Amiineben/StudyWave-attendence/pkg/cache"
	"github.com/Amiineben/StudyWave-attendence/pkg/config"
	"github.com/Amiineben/StudyWave-attendence/pkg/database"
	"github.com/Amiineben/StudyWave-attendence/pkg/logger"
	corsmiddleware "github.com/Amiineben/StudyWave-attendence/pkg/middleware/cors"
	reqidmiddleware "github.com/Amiineben/StudyWave-attendence/pkg/middleware/requestid"
	"github.com/Amiineben/StudyWave-attendence/pkg/storage"
)

// @title StudyWave Attendance API
// @version 1.0.0
// @description Course enrollment and QR-session attendance service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studywave-attendance",
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	profileSvc := service.NewProfileSyncService(profileRepo, enrollmentRepo, cfg.Profile, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, profileSvc, metricsSvc, logr)
	sessionSvc := service.NewSessionService(courseRepo, cfg.Attendance.SessionTTL, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, courseRepo, enrollmentRepo, cacheSvc, metricsSvc, cfg.Attendance.SessionTTL, validate, logr)
	statsSvc := service.NewStatsService(courseRepo, attendanceRepo, cacheSvc, exportStore, signer, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profileSvc.Start(ctx)
	defer profileSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, courseSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	profileHandler := handler.NewProfileHandler(enrollmentSvc, profileSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/courses", courseHandler.List)
	protected.GET("/courses/:id", courseHandler.Get)
	protected.POST("/courses",
		middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
		courseHandler.Create)
	protected.PUT("/courses/:id/publish",
		middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
		courseHandler.Publish)

	protected.POST("/courses/:id/enroll",
		middleware.RequireRoles(models.RoleStudent),
		enrollmentHandler.Enroll)
	protected.POST("/courses/:id/drop",
		middleware.RequireRoles(models.RoleStudent),
		enrollmentHandler.Drop)
	protected.GET("/courses/:id/enrollments",
		middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
		enrollmentHandler.Roster)

	protected.POST("/courses/:id/sessions",
		middleware.RequireRoles(models.RoleInstructor),
		sessionHandler.Issue)
	protected.POST("/attendance",
		middleware.RequireRoles(models.RoleStudent),
		attendanceHandler.Record)

	protected.GET("/courses/:id/stats",
		middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
		statsHandler.CourseStats)
	protected.GET("/courses/:id/stats/export",
		middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin),
		statsHandler.Export)
	api.GET("/exports/download", statsHandler.Download)

	protected.GET("/me/courses",
		middleware.RequireRoles(models.RoleStudent),
		profileHandler.MyCourses)
	protected.POST("/me/courses/reconcile",
		middleware.RequireRoles(models.RoleStudent),
		profileHandler.Reconcile)

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
