package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nutrition-engine/internal/core/food"
	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/core/rating"
	"nutrition-engine/internal/infrastructure/cache"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/infrastructure/database"
	"nutrition-engine/internal/infrastructure/intake"
	"nutrition-engine/internal/infrastructure/metrics"
	"nutrition-engine/internal/infrastructure/openfoodfacts"
	"nutrition-engine/internal/pkg/common"
)

// CheckFunc 就緒檢查
type CheckFunc = func(ctx context.Context) error

// App 組裝完成的服務與其依賴
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Cache   *cache.Manager
	Metrics *metrics.Collector
	Service *rating.Service
	Checks  map[string]CheckFunc
}

// Stores 兩個食物資料庫
type Stores struct {
	Regional food.Store
	General  food.Store
}

// New 建立資料庫、Redis、快取與指標，並組裝服務
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Checks: make(map[string]CheckFunc)}

	db, err := database.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Checks["database"] = func(ctx context.Context) error { return database.Ping(ctx, db) }

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Cache = cache.NewManager(cfg.Cache)
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewCollector(true)
	}

	stores := Stores{Regional: database.NewFoodStore(db, food.SourceRegional)}
	switch cfg.GeneralCorpus.Backend {
	case config.GeneralBackendOpenFoodFacts:
		stores.General = openfoodfacts.NewClient(cfg.GeneralCorpus, a.Cache)
	default:
		stores.General = database.NewFoodStore(db, food.SourceGeneral)
	}

	var reader rating.IntakeReader
	if cfg.Redis.Enabled {
		client, err := intake.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		r := intake.NewRedisReader(client, cfg.Redis.KeyPrefix)
		reader = r
		a.Checks["redis"] = r.Ping
	}

	var m food.Metrics
	if a.Metrics != nil {
		m = a.Metrics
	}
	a.Service, err = NewService(cfg, stores, reader, m)
	if err != nil {
		a.Close()
		return nil, err
	}

	common.LogInfo("Application initialized",
		zap.String("general_backend", cfg.GeneralCorpus.Backend),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("cache_enabled", a.Cache != nil),
		zap.Bool("metrics_enabled", a.Metrics != nil),
		zap.Bool("parallel_lookup", cfg.Resolver.Parallel),
	)
	return a, nil
}

// NewService 由設定與資料庫組裝服務，不建立任何連線
func NewService(cfg *config.Config, stores Stores, reader rating.IntakeReader, m food.Metrics) (*rating.Service, error) {
	policy, err := nutrient.DefaultPolicy().WithDefaults(cfg.Nutrition.Defaults)
	if err != nil {
		return nil, fmt.Errorf("invalid nutrition defaults: %w", err)
	}
	policy, err = policy.WithReferenceWeight(cfg.Nutrition.ReferenceWeightKg)
	if err != nil {
		return nil, fmt.Errorf("invalid reference weight: %w", err)
	}

	var regional, general *food.Matcher
	if stores.Regional != nil {
		regional = food.NewMatcher(stores.Regional, food.MatcherConfig{
			Corpus:              food.SourceRegional,
			SearchLimit:         cfg.Resolver.SearchLimit,
			RequireTokenOverlap: cfg.Resolver.RequireTokenOverlap,
		}, m)
	}
	if stores.General != nil {
		general = food.NewMatcher(stores.General, food.MatcherConfig{
			Corpus:              food.SourceGeneral,
			SearchLimit:         cfg.Resolver.SearchLimit,
			RequireTokenOverlap: cfg.Resolver.RequireTokenOverlap,
			Floor:               food.GeneralFloor,
		}, m)
	}

	defaultConfidence := cfg.Resolver.DefaultConfidence
	resolver := food.NewResolver(regional, general, food.ResolverConfig{
		Parallel:          cfg.Resolver.Parallel,
		LookupTimeout:     cfg.Resolver.LookupTimeout,
		DefaultConfidence: &defaultConfidence,
	}, m)

	return rating.NewService(resolver, nutrient.NewEngine(policy), reader, rating.Options{
		BatchWorkers: cfg.Queue.Workers,
		BatchMaxSize: cfg.Queue.MaxSize,
	}), nil
}

// Close 釋放所有連線
func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			common.LogWarn("Failed to close Redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			common.LogWarn("Failed to close database", zap.Error(err))
		}
	}
}
