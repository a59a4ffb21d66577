package food

import (
	"context"
	"errors"
	"strings"

	"nutrition-engine/internal/pkg/common"
)

const defaultSearchLimit = 5

// MatcherConfig 單一資料庫 matcher 的設定
type MatcherConfig struct {
	Corpus      Source
	SearchLimit int
	// RequireTokenOverlap 為 true 時，fuzzy-loose 至少要有一個 token 出現在名稱欄位中
	RequireTokenOverlap bool
	// Floor 低於此信心值的結果直接丟棄
	Floor float64
}

// Matcher 依 exact → alias → fuzzy → single-token 的順序比對，第一個成功的策略直接回傳
type Matcher struct {
	store   Store
	cfg     MatcherConfig
	metrics Metrics
}

// NewMatcher 創建 matcher
func NewMatcher(store Store, cfg MatcherConfig, metrics Metrics) *Matcher {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Matcher{store: store, cfg: cfg, metrics: metrics}
}

// Corpus 此 matcher 對應的資料庫
func (m *Matcher) Corpus() Source {
	return m.cfg.Corpus
}

// Match 回傳第一個成功策略的結果，全部失敗時回傳 nil。
// 查詢錯誤只會記錄並視為該策略沒有結果，不會中斷後續策略。
func (m *Matcher) Match(ctx context.Context, candidate string) *Match {
	name := normalizeName(candidate)
	if name == "" {
		return nil
	}

	strategies := []func(context.Context, string) *Match{
		m.exact,
		m.alias,
		m.fuzzy,
		m.single,
	}
	for _, try := range strategies {
		if match := try(ctx, name); match != nil {
			if match.Confidence < m.cfg.Floor {
				return nil
			}
			return match
		}
	}
	return nil
}

func (m *Matcher) exact(ctx context.Context, name string) *Match {
	rec, err := m.store.FindByName(ctx, name)
	if !m.ok(err, TierExact, name) {
		return nil
	}
	return m.result(rec, confidenceExact, TierExact)
}

func (m *Matcher) alias(ctx context.Context, name string) *Match {
	rec, err := m.store.FindByAlias(ctx, name)
	if !m.ok(err, TierAlias, name) {
		return nil
	}
	return m.result(rec, confidenceAlias, TierAlias)
}

func (m *Matcher) fuzzy(ctx context.Context, name string) *Match {
	tokens := tokenize(name)
	if len(tokens) == 0 {
		return nil
	}
	recs, err := m.store.Search(ctx, tokens, m.cfg.SearchLimit)
	if !m.ok(err, TierFuzzyStrict, name) || len(recs) == 0 {
		return nil
	}

	top := recs[0]
	fields := top.nameFields()
	hits := 0
	for _, t := range tokens {
		if strings.Contains(fields, t) {
			hits++
		}
	}

	switch {
	case hits == len(tokens):
		return m.result(&top, confidenceFuzzyStrict, TierFuzzyStrict)
	case hits == 0 && m.cfg.RequireTokenOverlap:
		return nil
	default:
		return m.result(&top, confidenceFuzzyLoose, TierFuzzyLoose)
	}
}

func (m *Matcher) single(ctx context.Context, name string) *Match {
	lead := leadingToken(tokenize(name))
	if lead == "" {
		return nil
	}
	rec, err := m.store.FindByFragment(ctx, lead)
	if !m.ok(err, TierFuzzySingle, name) {
		return nil
	}
	return m.result(rec, confidenceFuzzySingle, TierFuzzySingle)
}

// ok 查無資料不算失敗；其他錯誤記錄後當作沒有結果
func (m *Matcher) ok(err error, strategy Tier, name string) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrNotFound) {
		m.metrics.LookupFailed(m.cfg.Corpus, strategy)
		common.LogLookupFailure(string(m.cfg.Corpus), string(strategy), name, err)
	}
	return false
}

func (m *Matcher) result(rec *Record, confidence float64, tier Tier) *Match {
	if rec == nil {
		return nil
	}
	return &Match{Record: *rec, Confidence: confidence, Tier: tier, Corpus: m.cfg.Corpus}
}
