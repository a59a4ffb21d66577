package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-engine/internal/api/handlers"
	"nutrition-engine/internal/api/handlers/health"
	"nutrition-engine/internal/api/middleware"
	"nutrition-engine/internal/app"
	"nutrition-engine/internal/pkg/common"
)

// SetupRouter 設置路由
func SetupRouter(a *app.App) *gin.Engine {
	cfg := a.Config
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	if a.Metrics != nil {
		router.Use(middleware.Metrics(a.Metrics))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := health.NewHandler(cfg.App.Version, a.Cache, a.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if a.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(a.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	if cfg.Server.MaxBodyBytes > 0 {
		v1.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}
	v1.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		v1.Use(middleware.RateLimit(limiter, cfg.RateLimit.Window))
	}

	// 單筆解析、目標計算與分級可安全重送，不做去重
	var dedup gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.DedupWindow > 0 {
		dedup = middleware.NewDeduplicator(cfg.DedupWindow).Middleware()
	}

	h := handlers.NewHandler(a.Service, cfg.App.Debug)
	{
		foods := v1.Group("/foods")
		foods.POST("/resolve", h.ResolveFood)
		foods.POST("/resolve/batch", dedup, h.ResolveBatch)

		nutrients := v1.Group("/nutrients")
		nutrients.POST("/targets", h.Targets)
		nutrients.POST("/warnings", dedup, h.Warnings)
		nutrients.POST("/check", dedup, h.Check)

		v1.GET("/intake/:user_id", h.DailyIntake)
		v1.POST("/vitals/classify", h.ClassifyVital)
	}

	common.LogInfo("Router setup completed",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("metrics_enabled", a.Metrics != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)
	return router
}
