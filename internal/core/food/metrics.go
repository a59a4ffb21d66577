package food

import "time"

// Metrics 解析過程的觀測點，未設定時使用 no-op
type Metrics interface {
	ObserveResolution(source Source, tier Tier, d time.Duration)
	LookupFailed(corpus Source, strategy Tier)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolution(Source, Tier, time.Duration) {}
func (nopMetrics) LookupFailed(Source, Tier)                     {}
