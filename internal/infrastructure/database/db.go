package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"
)

// Open 連線 PostgreSQL 並設定連線池
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnString()), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	common.LogInfo("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
	)
	return db, nil
}

// OpenWithConn 使用既有的 *sql.DB（測試時為 sqlmock）
func OpenWithConn(conn *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig(false))
}

func gormConfig(debug bool) *gorm.Config {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Warn
	}
	return &gorm.Config{Logger: gormlogger.Default.LogMode(level)}
}

// Migrate 建立資料表與索引
func Migrate(ctx context.Context, db *gorm.DB) error {
	common.LogInfo("Running migrations...")
	if err := db.WithContext(ctx).AutoMigrate(&FoodRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.WithContext(ctx).Exec(`CREATE INDEX IF NOT EXISTS idx_foods_aliases ON foods USING GIN (aliases)`).Error; err != nil {
		return fmt.Errorf("failed to create alias index: %w", err)
	}
	common.LogInfo("Migrations completed")
	return nil
}

// Ping 健康檢查用
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
