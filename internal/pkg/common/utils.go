package common

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Round2 四捨五入到小數點後兩位
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Clamp01 將數值限制在 [0,1]，NaN 視為 0
func Clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// ContainsAny 判斷 s 是否包含任一子字串
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
