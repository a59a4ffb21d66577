package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 一般資料庫來源
const (
	GeneralBackendPostgres      = "postgres"
	GeneralBackendOpenFoodFacts = "openfoodfacts"
)

// Config 應用配置
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Resolver      ResolverConfig      `mapstructure:"resolver"`
	GeneralCorpus GeneralCorpusConfig `mapstructure:"general_corpus"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Queue         QueueConfig         `mapstructure:"queue"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Nutrition     NutritionConfig     `mapstructure:"nutrition"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	DedupWindow   time.Duration       `mapstructure:"dedup_window"`
	LogLevel      string              `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig PostgreSQL 連線設定；DSN 有值時優先使用
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ConnString 組出 gorm postgres driver 使用的連線字串
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig 每日攝取彙總所在的 Redis
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ResolverConfig 食物解析設定
type ResolverConfig struct {
	Parallel            bool          `mapstructure:"parallel"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
	SearchLimit         int           `mapstructure:"search_limit"`
	RequireTokenOverlap bool          `mapstructure:"require_token_overlap"`
	DefaultConfidence   float64       `mapstructure:"default_confidence"`
}

// GeneralCorpusConfig 一般資料庫來源設定
type GeneralCorpusConfig struct {
	Backend   string        `mapstructure:"backend"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageSize  int           `mapstructure:"page_size"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CacheConfig 遠端資料庫回應的記憶體快取
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 批次解析的並行度與上限
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// NutritionConfig 營養政策覆寫
type NutritionConfig struct {
	ReferenceWeightKg float64            `mapstructure:"reference_weight_kg"`
	Defaults          map[string]float64 `mapstructure:"defaults"`
}

// MetricsConfig Prometheus 設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定：.env（可不存在）→ 環境變數 → APP_CONFIG_FILE 指定的設定檔
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	_ = v.BindEnv("config_file", "APP_CONFIG_FILE")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("general_corpus.backend", "GENERAL_CORPUS_BACKEND")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutrition-engine")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 資料庫設定
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "nutrition")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "intake:daily")

	// 解析器設定
	v.SetDefault("resolver.parallel", false)
	v.SetDefault("resolver.lookup_timeout", "2s")
	v.SetDefault("resolver.search_limit", 5)
	v.SetDefault("resolver.require_token_overlap", true)
	v.SetDefault("resolver.default_confidence", 0.5)

	// 一般資料庫設定
	v.SetDefault("general_corpus.backend", GeneralBackendPostgres)
	v.SetDefault("general_corpus.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("general_corpus.timeout", "5s")
	v.SetDefault("general_corpus.page_size", 5)
	v.SetDefault("general_corpus.user_agent", "nutrition-engine/1.0")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 批次設定
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 50)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 營養設定
	v.SetDefault("nutrition.reference_weight_kg", 60)

	// 監控設定
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	switch config.GeneralCorpus.Backend {
	case GeneralBackendPostgres:
	case GeneralBackendOpenFoodFacts:
		if config.GeneralCorpus.BaseURL == "" {
			return fmt.Errorf("general corpus base url is required for %s", GeneralBackendOpenFoodFacts)
		}
	default:
		return fmt.Errorf("unknown general corpus backend %q", config.GeneralCorpus.Backend)
	}

	if c := config.Resolver.DefaultConfidence; c < 0 || c > 1 {
		return fmt.Errorf("resolver default confidence must be within [0,1]")
	}
	if config.Resolver.SearchLimit <= 0 {
		return fmt.Errorf("invalid resolver search limit")
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	return nil
}
