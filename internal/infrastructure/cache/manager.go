package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"
)

// Manager 記憶體快取，過期時間 + 最少使用淘汰
type Manager struct {
	cfg   config.CacheConfig
	mu    sync.Mutex
	store map[string]entry
	stats Stats
	done  chan struct{}
	once  sync.Once
	now   func() time.Time
}

type entry struct {
	value       []byte
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 快取統計
type Stats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Errors    int64 `json:"errors"`
}

// NewManager 創建快取；cfg.Enabled 為 false 時回傳 nil，nil Manager 的所有方法都是 no-op
func NewManager(cfg config.CacheConfig) *Manager {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		cfg:   cfg,
		store: make(map[string]entry),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	if cfg.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("Cache manager initialized",
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
	)
	return m
}

// Key 將任意字串轉為固定長度的快取鍵
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get 取得快取值，過期視為未命中
func (m *Manager) Get(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	now := m.now()
	if now.After(e.expiresAt) {
		delete(m.store, key)
		m.stats.Evictions++
		m.stats.Misses++
		return nil, false
	}

	e.lastAccess = now
	e.accessCount++
	m.store[key] = e
	m.stats.Hits++
	return e.value, true
}

// Set 寫入快取；已滿時先清理過期項目，再淘汰最少使用的項目
func (m *Manager) Set(key string, value []byte) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.cfg.MaxSize {
		evicted := m.cleanup()
		if len(m.store) >= m.cfg.MaxSize {
			m.evictLRU()
			evicted++
		}
		if len(m.store) >= m.cfg.MaxSize {
			m.stats.Errors++
			common.LogWarn("Cache full", zap.Int("size", len(m.store)))
			return common.ErrCacheFull
		}
		common.LogDebug("Cache eviction", zap.Int("evicted", evicted))
	}

	now := m.now()
	m.store[key] = entry{
		value:      value,
		expiresAt:  now.Add(m.cfg.TTL),
		lastAccess: now,
	}
	return nil
}

func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// cleanup 移除過期項目，呼叫端需持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0
	for key, e := range m.store {
		if now.After(e.expiresAt) {
			delete(m.store, key)
			count++
		}
	}
	m.stats.Evictions += int64(count)

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictLRU 淘汰存取次數最少、其次最久未存取的項目，呼叫端需持有鎖
func (m *Manager) evictLRU() {
	var oldestKey string
	var oldest entry
	for key, e := range m.store {
		if oldestKey == "" ||
			e.accessCount < oldest.accessCount ||
			(e.accessCount == oldest.accessCount && e.lastAccess.Before(oldest.lastAccess)) {
			oldestKey = key
			oldest = e
		}
	}
	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.Evictions++
	}
}

// Stats 取得統計資料
func (m *Manager) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.store)
	s.MaxSize = m.cfg.MaxSize
	return s
}

// Close 停止清理協程並清空快取
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]entry)
	common.LogInfo("Cache manager closed",
		zap.Int64("hits", m.stats.Hits),
		zap.Int64("misses", m.stats.Misses),
		zap.Int64("evictions", m.stats.Evictions),
	)
	return nil
}
