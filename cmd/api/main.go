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
	"go.uber.org/zap"

	_ "github.com/academia-ops/academia-api/api/swagger"
	"github.com/academia-ops/academia-api/internal/handler"
	"github.com/academia-ops/academia-api/internal/middleware"
	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/repository"
	"github.com/academia-ops/academia-api/internal/service"
	"github.com/academia-ops/academia-api/pkg/cache"
	"github.com/academia-ops/academia-api/pkg/config"
	"github.com/academia-ops/academia-api/pkg/database"
	"github.com/academia-ops/academia-api/pkg/jobs"
	"github.com/academia-ops/academia-api/pkg/logger"
	corsmiddleware "github.com/academia-ops/academia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academia-ops/academia-api/pkg/middleware/requestid"
	"github.com/academia-ops/academia-api/pkg/storage"
)

// @title Academia API
// @version 1.0.0
// @description Academy administration API: students, tuition payments, grades and exports
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, paymentRepo, guardianRepo, validate, logr)
	guardianSvc := service.NewGuardianService(guardianRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, userRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, subjectRepo, studentRepo, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, paymentRepo, gradeRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	// Export pipeline.
	var exportJobSvc *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(paymentRepo, gradeRepo, studentRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)
		worker := service.NewExportWorker(exportRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		exportJobSvc = service.NewExportJobService(exportRepo, exportQueue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, dashboardSvc)
	guardianHandler := handler.NewGuardianHandler(guardianSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, dashboardSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc, dashboardSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
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
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		session := auth.Group("", middleware.JWT(authSvc))
		session.POST("/logout", authHandler.Logout)
		session.POST("/change-password", authHandler.ChangePassword)
		session.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	students := protected.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.GET("/:id/grades", gradeHandler.Report)
		students.GET("/:id/payments", paymentHandler.ListByStudent)
		writes := students.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionStudentWrite, "students"))
		writes.POST("", studentHandler.Create)
		writes.PUT("/:id", studentHandler.Update)
		writes.DELETE("/:id", studentHandler.Delete)
	}

	guardians := protected.Group("/guardians")
	{
		guardians.GET("", guardianHandler.List)
		guardians.GET("/:id", guardianHandler.Get)
		writes := guardians.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), middleware.Audit(userRepo, "WRITE", "guardians"))
		writes.POST("", guardianHandler.Create)
		writes.PUT("/:id", guardianHandler.Update)
		writes.DELETE("/:id", guardianHandler.Delete)
	}

	payments := protected.Group("/payments")
	{
		payments.GET("", paymentHandler.List)
		payments.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleOperator), paymentHandler.Record)
		payments.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), paymentHandler.Delete)
	}

	grades := protected.Group("/grades")
	{
		grades.GET("", gradeHandler.List)
		grades.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleOperator), gradeHandler.Record)
		grades.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), gradeHandler.Delete)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", gradeHandler.ListSubjects)
		subjects.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), gradeHandler.CreateSubject)
		subjects.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), gradeHandler.DeleteSubject)
	}

	users := protected.Group("/users")
	{
		users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), "SELF"), userHandler.Get)
		admin := users.Group("", middleware.RequireRoles(models.RoleSuperAdmin), middleware.Audit(userRepo, "WRITE", "users"))
		admin.GET("", userHandler.List)
		admin.POST("", userHandler.Create)
		admin.PUT("/:id", userHandler.Update)
		admin.DELETE("/:id", userHandler.Delete)
	}

	protected.GET("/dashboard", dashboardHandler.Overview)
	protected.GET("/ops/metrics", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), metricsHandler.Snapshot)

	if exportJobSvc != nil {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		exports := protected.Group("/exports")
		exports.POST("", exportHandler.Create)
		exports.GET("/:id", exportHandler.Status)
		// Token carries its own signature and expiry, no session required.
		api.GET("/export/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
