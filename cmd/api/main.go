package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openballot/openballot-api/api/swagger"
	"github.com/openballot/openballot-api/internal/handler"
	"github.com/openballot/openballot-api/internal/middleware"
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/internal/repository"
	"github.com/openballot/openballot-api/internal/service"
	"github.com/openballot/openballot-api/pkg/cache"
	"github.com/openballot/openballot-api/pkg/config"
	"github.com/openballot/openballot-api/pkg/database"
	"github.com/openballot/openballot-api/pkg/logger"
	corsmiddleware "github.com/openballot/openballot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openballot/openballot-api/pkg/middleware/requestid"
)

// @title OpenBallot API
// @version 1.0.0
// @description Moderated community edits for the OpenBallot election guide
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, cache and rate limiting degraded", "error", err)
		redisClient = nil
	}

	// Repositories.
	editRepo := repository.NewEditRepository(db)
	entityRepo := repository.NewEntityRepository(db)
	userRepo := repository.NewUserRepository(db)
	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}
	tokenSvc := service.NewTokenService(cfg.JWT)
	trustPolicy := service.NewTrustPolicy(cfg.Trust)
	editSvc := service.NewEditService(editRepo, entityRepo, userRepo, trustPolicy, userRepo, logr)
	moderationSvc := service.NewModerationService(editRepo, userRepo, validator.New(), logr)
	historySvc := service.NewHistoryService(editRepo, userRepo, logr)
	dashboardSvc := service.NewDashboardService(editRepo, cacheSvc, logr, service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL})
	exportSvc := service.NewExportService(editRepo, userRepo, cfg.Export, logr)
	var limiter *service.RateLimitService
	if cacheRepo != nil {
		limiter = service.NewRateLimitService(cacheRepo, cfg.RateLimit, logr)
	}

	// Handlers.
	csrfGuard := middleware.NewCSRFGuard(cfg.CSRF)
	editHandler := handler.NewEditHandler(editSvc, historySvc, metricsSvc)
	moderationHandler := handler.NewModerationHandler(moderationSvc, historySvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	userHandler := handler.NewUserHandler(historySvc)
	csrfHandler := handler.NewCSRFHandler(csrfGuard)
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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/csrf", csrfHandler.Token)

	edits := api.Group("/edits")
	edits.GET("", middleware.OptionalJWT(tokenSvc), editHandler.List)
	edits.GET("/:id", middleware.OptionalJWT(tokenSvc), editHandler.Get)
	edits.POST("",
		middleware.JWT(tokenSvc),
		middleware.CSRF(csrfGuard),
		middleware.RateLimit(limiter),
		editHandler.Create)

	moderation := api.Group("/moderation", middleware.JWT(tokenSvc), middleware.RequireModerator())
	moderation.GET("/edits", moderationHandler.Queue)
	moderation.PATCH("/edits/:id",
		middleware.CSRF(csrfGuard),
		middleware.Audit(userRepo, models.AuditActionEditReview, "moderation"),
		moderationHandler.Review)
	if cfg.Dashboard.Enabled {
		moderation.GET("/dashboard", dashboardHandler.Moderation)
	}
	if cfg.Export.Enabled {
		moderation.GET("/edits/export", middleware.RBAC(models.RoleAdmin), exportHandler.Download)
	}

	api.GET("/users/:publicId/edits", middleware.OptionalJWT(tokenSvc), userHandler.Edits)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
