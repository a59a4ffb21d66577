package intake

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"
)

const dayLayout = "2006-01-02"

// Reader 讀取已彙總的每日攝取量；此服務只讀不寫
type Reader interface {
	DailyIntake(ctx context.Context, userID string, day time.Time) (nutrient.Amounts, error)
}

// hashClient redis.Client 中用到的部分
type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisReader 讀取 hash `{prefix}:{user_id}:{yyyy-mm-dd}`，field 為營養素代碼
type RedisReader struct {
	client hashClient
	prefix string
}

// NewRedisClient 創建 Redis 連線並測試連接
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	common.LogInfo("Redis connection established", zap.String("addr", cfg.Addr))
	return client, nil
}

// NewRedisReader 創建攝取量讀取器
func NewRedisReader(client hashClient, prefix string) *RedisReader {
	if prefix == "" {
		prefix = "intake:daily"
	}
	return &RedisReader{client: client, prefix: prefix}
}

// Key 彙總資料的 Redis key
func (r *RedisReader) Key(userID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, userID, day.Format(dayLayout))
}

// DailyIntake key 不存在時回傳空的彙總；無法解析的 field 會被略過
func (r *RedisReader) DailyIntake(ctx context.Context, userID string, day time.Time) (nutrient.Amounts, error) {
	if userID == "" {
		return nil, common.NewFieldError("user_id", "is required")
	}

	key := r.Key(userID, day)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, common.ErrIntakeUnavailable.Wrap(err)
	}

	out := make(nutrient.Amounts, len(fields))
	for field, raw := range fields {
		code, err := nutrient.ParseCode(field)
		if err != nil {
			common.LogDebug("Skipping unknown intake field", zap.String("key", key), zap.String("field", field))
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			common.LogWarn("Skipping malformed intake value", zap.String("key", key), zap.String("field", field))
			continue
		}
		out[code] = v
	}
	return out, nil
}

// Ping 健康檢查用
func (r *RedisReader) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
