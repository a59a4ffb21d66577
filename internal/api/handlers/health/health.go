package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-engine/internal/infrastructure/cache"
	"nutrition-engine/internal/pkg/common"
)

const checkTimeout = 2 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// ReadyResponse 各依賴的檢查結果
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	cache   *cache.Manager
	checks  map[string]func(ctx context.Context) error
}

// NewHandler checks 為就緒檢查，key 為依賴名稱
func NewHandler(version string, cacheManager *cache.Manager, checks map[string]func(ctx context.Context) error) *Handler {
	return &Handler{version: version, cache: cacheManager, checks: checks}
}

// HealthCheck GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.cache != nil {
		stats := h.cache.Stats()
		response.Cache = &stats
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck GET /ready，任一依賴失敗回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(status, resp)
}

// LivenessCheck GET /live
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
