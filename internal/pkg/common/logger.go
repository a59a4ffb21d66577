package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "nutrition-engine"

var (
	// Logger 全局日誌實例，InitLogger 之前為 no-op
	Logger  = zap.NewNop()
	LogMode string

	levelColors = map[zapcore.Level]string{
		zapcore.DebugLevel: "\033[36m",
		zapcore.InfoLevel:  "\033[32m",
		zapcore.WarnLevel:  "\033[33m",
		zapcore.ErrorLevel: "\033[31m",
		zapcore.FatalLevel: "\033[35m",
	}
	resetColor = "\033[0m"

	// 不允許寫入日誌的欄位（連線字串、密碼等）
	sensitiveKeys = []string{"password", "dsn", "api_key", "secret"}
)

func getEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

// levelEncoder 三字元級別並加上顏色
func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	short := map[zapcore.Level]string{
		zapcore.DebugLevel: "DBG",
		zapcore.InfoLevel:  "INF",
		zapcore.WarnLevel:  "WRN",
		zapcore.ErrorLevel: "ERR",
		zapcore.FatalLevel: "FAT",
	}
	level, ok := short[l]
	if !ok {
		level = l.CapitalString()
	}
	enc.AppendString(levelColors[l] + level + resetColor)
}

// ParseLevel 將設定字串轉為 zap 級別，未知值回退為 info
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日誌系統：JSON 檔案輸出 + 彩色主控台輸出
func InitLogger(logLevel string) error {
	level := ParseLevel(logLevel)
	LogMode = os.Getenv("LOG_MODE")

	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(getEncoderConfig()),
		zapcore.AddSync(logFile),
		level,
	)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(getEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		level,
	)

	Logger = zap.New(zapcore.NewTee(fileCore, consoleCore),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", serviceName)),
	)
	zap.ReplaceGlobals(Logger)

	return nil
}

// filterFields 移除敏感欄位
func filterFields(fields []zap.Field) []zap.Field {
	filtered := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if isSensitiveKey(field.Key) {
			continue
		}
		filtered = append(filtered, field)
	}
	return filtered
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// LogInfo 記錄信息日誌；LOG_MODE=concise 時只保留請求與啟停訊息
func LogInfo(msg string, fields ...zap.Field) {
	if LogMode == "concise" {
		if msg != "請求完成" && msg != "啟動應用" && msg != "Server exited" && msg != "Shutting down server..." {
			return
		}
	}
	Logger.Info(msg, filterFields(fields)...)
}

// LogWarn 記錄警告日誌
func LogWarn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, filterFields(fields)...)
}

// LogError 記錄錯誤日誌
func LogError(msg string, fields ...zap.Field) {
	Logger.Error(msg, filterFields(fields)...)
}

// LogDebug 記錄調試日誌
func LogDebug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, filterFields(fields)...)
}

// LogFatal 記錄致命錯誤日誌
func LogFatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, filterFields(fields)...)
}

// Sync 同步日誌緩衝
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// LogLookupFailure 記錄資料庫查詢失敗；呼叫端會把它當作「此策略無結果」繼續
func LogLookupFailure(corpus, strategy, candidate string, err error) {
	LogWarn("食物查詢失敗，視為無結果",
		zap.String("corpus", corpus),
		zap.String("strategy", strategy),
		zap.String("candidate", candidate),
		zap.Error(err),
	)
}

// LogResolution 記錄一次食物解析結果
func LogResolution(candidate, source, tier string, confidence float64, duration time.Duration) {
	LogDebug("食物解析完成",
		zap.String("candidate", candidate),
		zap.String("source", source),
		zap.String("tier", tier),
		zap.Float64("confidence", confidence),
		zap.Duration("耗時", duration),
	)
}
