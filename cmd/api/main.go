package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/VinceIver/gis-portal/api/swagger"
	"github.com/VinceIver/gis-portal/internal/handler"
	"github.com/VinceIver/gis-portal/internal/middleware"
	"github.com/VinceIver/gis-portal/internal/report"
	"github.com/VinceIver/gis-portal/internal/repository"
	"github.com/VinceIver/gis-portal/internal/service"
	"github.com/VinceIver/gis-portal/pkg/cache"
	"github.com/VinceIver/gis-portal/pkg/config"
	"github.com/VinceIver/gis-portal/pkg/database"
	"github.com/VinceIver/gis-portal/pkg/logger"
	corsmiddleware "github.com/VinceIver/gis-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/VinceIver/gis-portal/pkg/middleware/requestid"
	"github.com/VinceIver/gis-portal/pkg/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// @title GIS Service Center API
// @version 1.0.0
// @description Request intake, tracking, trainings and reporting for the university GIS service center
// @BasePath /api
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional; without it reports are computed fresh per call.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.PublicPath)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, redisClient != nil)

	adminRepo := repository.NewAdminRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)

	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "gis-portal",
	})
	requestSvc := service.NewRequestService(requestRepo, cacheSvc, validate, logr)
	resourceSvc := service.NewResourceService(resourceRepo, uploads, cacheSvc, validate, logr)
	trainingSvc := service.NewTrainingService(trainingRepo, validate, logr)
	reportSvc := service.NewReportService(requestRepo, resourceRepo, cacheSvc, service.ReportConfig{
		SLALimits: report.SLALimits{
			DaysByType:  cfg.SLA.DaysByType,
			DefaultDays: cfg.SLA.DefaultDays,
		},
		CacheTTL:     cfg.Reports.CacheTTL,
		OverdueTopN:  cfg.Reports.OverdueTopN,
		MaxListLimit: cfg.Reports.MaxListLimit,
	}, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc, uploads, cfg.Uploads.MaxFileSizeBytes)
	trainingHandler := handler.NewTrainingHandler(trainingSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Delivered files are served straight off the uploads directory.
	r.Static(cfg.Uploads.PublicPath, uploads.Dir())

	jwtGuard := middleware.JWT(authSvc)
	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/admin/login", authHandler.Login)
		api.GET("/admin/me", jwtGuard, authHandler.Me)

		api.POST("/requests", requestHandler.Create)
		api.GET("/requests/track/:code", requestHandler.Track)
		api.GET("/requests", jwtGuard, requestHandler.List)
		api.PATCH("/requests/:id/approve", jwtGuard, requestHandler.Approve)
		api.PATCH("/requests/:id/reject", jwtGuard, requestHandler.Reject)

		api.POST("/resources/requests", resourceHandler.Create)
		api.GET("/resources/requests/track/:code", resourceHandler.Track)
		api.GET("/resources/admin/requests", jwtGuard, resourceHandler.List)
		api.PATCH("/resources/admin/requests/:id/approve", jwtGuard, resourceHandler.Approve)
		api.PATCH("/resources/admin/requests/:id/reject", jwtGuard, resourceHandler.Reject)
		api.POST("/resources/admin/requests/:id/deliveries", jwtGuard, resourceHandler.Deliver)

		api.GET("/trainings", trainingHandler.List)
		api.POST("/trainings/:id/register", trainingHandler.Register)
		api.POST("/trainings", jwtGuard, trainingHandler.Create)
		api.PATCH("/trainings/:id", jwtGuard, trainingHandler.Update)
		api.DELETE("/trainings/:id", jwtGuard, trainingHandler.Delete)
		api.GET("/trainings/:id/attendees", jwtGuard, trainingHandler.Attendees)

		api.GET("/reports/summary", jwtGuard, reportHandler.Summary)
		api.GET("/reports/export", jwtGuard, reportHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
