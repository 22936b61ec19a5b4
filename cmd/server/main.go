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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/villagefreeschool/adminportal-sub001/api/swagger"
	"github.com/villagefreeschool/adminportal-sub001/internal/handler"
	"github.com/villagefreeschool/adminportal-sub001/internal/middleware"
	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/internal/repository"
	"github.com/villagefreeschool/adminportal-sub001/internal/service"
	"github.com/villagefreeschool/adminportal-sub001/internal/tuition"
	"github.com/villagefreeschool/adminportal-sub001/pkg/cache"
	"github.com/villagefreeschool/adminportal-sub001/pkg/config"
	"github.com/villagefreeschool/adminportal-sub001/pkg/database"
	"github.com/villagefreeschool/adminportal-sub001/pkg/jobs"
	"github.com/villagefreeschool/adminportal-sub001/pkg/logger"
	corsmiddleware "github.com/villagefreeschool/adminportal-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/villagefreeschool/adminportal-sub001/pkg/middleware/requestid"
	"github.com/villagefreeschool/adminportal-sub001/pkg/storage"
)

const schoolName = "Village Free School"

// @title Admin Portal API
// @version 1.0.0
// @description School administration portal: families, school years, enrollment contracts, and sliding-scale tuition.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	yearRepo := repository.NewYearRepository(db)
	contractRepo := repository.NewContractRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "adminportal",
		Audience:           []string{"adminportal-api"},
	})
	familySvc := service.NewFamilyService(familyRepo, nil, logr)
	yearSvc := service.NewYearService(yearRepo, nil, logr)

	policy := tuition.Policy{
		PartTimeFraction: cfg.Tuition.PartTimeFraction,
		SiblingDiscount:  cfg.Tuition.SiblingDiscount,
		MaxAnnualChange:  cfg.Tuition.MaxAnnualChange,
	}
	contractSvc := service.NewContractService(contractRepo, yearRepo, familyRepo, policy, schoolName, nil, logr)

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(contractRepo, yearRepo, cacheSvc, logr, service.DashboardServiceConfig{
			CacheTTL: cfg.Dashboard.CacheTTL,
		})
	}

	var exportJobSvc *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, storeErr := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if storeErr != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", storeErr)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter := service.NewExportService(yearRepo, contractRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)

		worker := service.NewExportWorker(exportJobRepo, exporter, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		exportJobSvc = service.NewExportJobService(exportJobRepo, exportQueue, exporter, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	familyHandler := handler.NewFamilyHandler(familySvc)
	yearHandler := handler.NewYearHandler(yearSvc)
	contractHandler := handler.NewContractHandler(contractSvc, dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if !cfg.Production() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	families := api.Group("/families", middleware.JWT(authSvc))
	{
		families.GET("", staffOnly, familyHandler.List)
		families.POST("", staffOnly, middleware.Audit(userRepo, models.AuditActionFamilyCreate, "families"), familyHandler.Create)
		families.GET("/:id", middleware.RBAC("ADMIN", "STAFF", "FAMILY"), familyHandler.Get)
		families.PUT("/:id", staffOnly, middleware.Audit(userRepo, models.AuditActionFamilyUpdate, "families"), familyHandler.Update)
		families.DELETE("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionFamilyDelete, "families"), familyHandler.Delete)
		families.GET("/:id/contracts/:yearId", middleware.RBAC("ADMIN", "STAFF", "FAMILY"), contractHandler.GetOrCreate)
	}

	years := api.Group("/years", middleware.JWT(authSvc))
	{
		years.GET("", yearHandler.List)
		years.GET("/:id", yearHandler.Get)
		years.POST("", adminOnly, middleware.Audit(userRepo, models.AuditActionYearCreate, "years"), yearHandler.Create)
		years.PUT("/:id", adminOnly, middleware.Audit(userRepo, models.AuditActionYearUpdate, "years"), yearHandler.Update)
		years.GET("/:id/roster", staffOnly, yearHandler.Roster)
	}

	contracts := api.Group("/contracts", middleware.JWT(authSvc))
	{
		contracts.GET("/:id", contractHandler.Get)
		contracts.GET("/:id/preview", contractHandler.Preview)
		contracts.GET("/:id/document", contractHandler.Document)
		contracts.PUT("/:id/decisions", middleware.Audit(userRepo, models.AuditActionContractEdit, "contracts"), contractHandler.UpdateDecisions)
		contracts.PUT("/:id/tuition", middleware.Audit(userRepo, models.AuditActionContractEdit, "contracts"), contractHandler.SetTuition)
		contracts.POST("/:id/signatures", middleware.Audit(userRepo, models.AuditActionContractSign, "contracts"), contractHandler.Sign)
	}

	if dashboardSvc != nil {
		dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
		api.GET("/dashboard", middleware.JWT(authSvc), staffOnly, dashboardHandler.Summary)
	}

	if exportJobSvc != nil {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		exports := api.Group("/exports", middleware.JWT(authSvc), staffOnly)
		{
			exports.POST("/generate", middleware.Audit(userRepo, models.AuditActionExportRequest, "exports"), exportHandler.Generate)
			exports.GET("/status/:id", exportHandler.Status)
		}
		// Download is token-authenticated, not JWT-authenticated, so
		// files can open in a browser tab.
		api.GET("/export/:token", exportHandler.Download)
	}

	api.GET("/metrics/system", middleware.JWT(authSvc), adminOnly, metricsHandler.Snapshot)

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
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
