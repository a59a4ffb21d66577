package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver 記錄每個請求的路由、狀態與耗時
type RequestObserver interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

// Metrics 以路由樣板（而非實際路徑）作為標籤
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		observer.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
