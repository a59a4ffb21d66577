package food

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nutrition-engine/internal/core/nutrient"
	"nutrition-engine/internal/pkg/common"
)

const (
	// acceptAbove 信心值必須大於此值才接受比對結果
	acceptAbove = 0.7
	// regionalVerifiedAt 區域資料庫結果達到此值不需人工確認
	regionalVerifiedAt = 0.9
	// generalVerifiedAt 一般資料庫結果達到此值不需人工確認
	generalVerifiedAt = 0.85
	// GeneralFloor 一般資料庫 matcher 的最低信心值
	GeneralFloor = 0.7

	defaultCallerConfidence = 0.5
)

// ResolverConfig 解析器設定
type ResolverConfig struct {
	// Parallel 同時查詢兩個資料庫，兩者都完成後再依優先順序選擇
	Parallel bool
	// LookupTimeout 每個資料庫查詢的逾時，0 代表不限制
	LookupTimeout time.Duration
	// DefaultConfidence 呼叫端未提供信心值時使用；nil 或超出 [0,1] 時為 0.5
	DefaultConfidence *float64
}

// Request 解析請求
type Request struct {
	Name       string           `json:"name"`
	Confidence *float64         `json:"confidence,omitempty"`
	Estimate   nutrient.Amounts `json:"estimate,omitempty"`
}

// Resolver 依序嘗試區域資料庫、一般資料庫，最後回退為呼叫端估計值
type Resolver struct {
	regional *Matcher
	general  *Matcher
	cfg      ResolverConfig
	fallback float64
	metrics  Metrics
}

// NewResolver 創建解析器；general 可以為 nil
func NewResolver(regional, general *Matcher, cfg ResolverConfig, metrics Metrics) *Resolver {
	fallback := defaultCallerConfidence
	if c := cfg.DefaultConfidence; c != nil && *c >= 0 && *c <= 1 {
		fallback = *c
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Resolver{regional: regional, general: general, cfg: cfg, fallback: fallback, metrics: metrics}
}

// Resolve 解析單一候選名稱。找不到比對不是錯誤，一定會回傳結果。
func (r *Resolver) Resolve(ctx context.Context, req Request) MatchResult {
	start := time.Now()

	var result MatchResult
	if normalizeName(req.Name) == "" {
		result = r.estimated(req, nil, "empty candidate name")
	} else {
		regional, general := r.lookup(ctx, req.Name)
		result = r.choose(req, regional, general)
	}
	result.Protein = assessResult(req.Name, result.Food)

	elapsed := time.Since(start)
	r.metrics.ObserveResolution(result.Source, result.Tier, elapsed)
	common.LogResolution(req.Name, string(result.Source), string(result.Tier), result.Confidence, elapsed)
	return result
}

// lookup 依設定循序或並行查詢兩個資料庫
func (r *Resolver) lookup(ctx context.Context, name string) (regional, general *Match) {
	useRegional := r.regional != nil && IsRegional(name)

	if !r.cfg.Parallel {
		if useRegional {
			regional = r.matchWithTimeout(ctx, r.regional, name)
			if accepted(regional) {
				return regional, nil
			}
		}
		if r.general != nil {
			general = r.matchWithTimeout(ctx, r.general, name)
		}
		return regional, general
	}

	var g errgroup.Group
	if useRegional {
		g.Go(func() error {
			regional = r.matchWithTimeout(ctx, r.regional, name)
			return nil
		})
	}
	if r.general != nil {
		g.Go(func() error {
			general = r.matchWithTimeout(ctx, r.general, name)
			return nil
		})
	}
	_ = g.Wait()
	return regional, general
}

// matchWithTimeout 逾時與查詢錯誤同樣視為沒有結果
func (r *Resolver) matchWithTimeout(ctx context.Context, m *Matcher, name string) *Match {
	if r.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.LookupTimeout)
		defer cancel()
	}
	match := m.Match(ctx, name)
	if ctx.Err() != nil {
		common.LogLookupFailure(string(m.Corpus()), "timeout", name, ctx.Err())
		return nil
	}
	return match
}

func (r *Resolver) choose(req Request, regional, general *Match) MatchResult {
	if accepted(regional) {
		return matched(req, regional, SourceRegional, regional.Confidence < regionalVerifiedAt)
	}
	if accepted(general) {
		return matched(req, general, SourceGeneral, general.Confidence < generalVerifiedAt)
	}

	suggestion := regional
	if suggestion == nil || (general != nil && general.Confidence > suggestion.Confidence) {
		suggestion = general
	}
	return r.estimated(req, suggestion, fmt.Sprintf("no match above %.2f confidence", acceptAbove))
}

func accepted(m *Match) bool {
	return m != nil && m.Confidence > acceptAbove
}

func matched(req Request, m *Match, source Source, verify bool) MatchResult {
	rec := m.Record
	return MatchResult{
		Matched:              true,
		Source:               source,
		Tier:                 m.Tier,
		Name:                 req.Name,
		Food:                 &rec,
		Estimate:             req.Estimate,
		Confidence:           m.Confidence,
		RequiresVerification: verify,
		Reason:               fmt.Sprintf("%s match on %q in %s corpus", m.Tier, rec.Name, source),
	}
}

// estimated 呼叫端的名稱與估計值原樣帶出，一律需要確認
func (r *Resolver) estimated(req Request, suggestion *Match, reason string) MatchResult {
	confidence := r.fallback
	if req.Confidence != nil {
		confidence = common.Clamp01(*req.Confidence)
	}
	if suggestion != nil {
		reason = fmt.Sprintf("%s; closest candidate %q (%s, %.2f)", reason, suggestion.Record.Name, suggestion.Tier, suggestion.Confidence)
	}
	return MatchResult{
		Matched:              false,
		Source:               SourceEstimated,
		Tier:                 TierEstimated,
		Name:                 req.Name,
		Estimate:             req.Estimate,
		Confidence:           confidence,
		RequiresVerification: true,
		Reason:               reason,
		Suggestion:           suggestion,
	}
}

// ResolveBatch 以 workers 個 goroutine 並行解析，結果順序與輸入相同
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request, workers int) []MatchResult {
	results := make([]MatchResult, len(reqs))
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = r.Resolve(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// assessResult 分別判斷候選名稱與比對到的食物；兩者不一致時標記為模糊並要求確認
func assessResult(candidate string, rec *Record) ProteinAssessment {
	a := AssessProtein(candidate)
	if rec == nil {
		return a
	}
	r := AssessProtein(strings.Join(append([]string{rec.Name, rec.LocalName}, rec.Tags...), " "))

	switch {
	case r.Category == ProteinUnknown:
		return a
	case a.Category == ProteinUnknown:
		return r
	case a.Category == r.Category && !a.Ambiguous:
		return r
	}

	out := ProteinAssessment{
		Category:  ProteinAmbiguous,
		Ambiguous: true,
		NeedsFlag: true,
		Cue:       r.Cue,
		Reason:    fmt.Sprintf("candidate suggests %s but matched food suggests %s", a.label(), r.label()),
	}
	seen := make(map[ProteinCategory]bool)
	for _, c := range append(a.categories(), r.categories()...) {
		if !seen[c] {
			seen[c] = true
			out.Candidates = append(out.Candidates, c)
		}
	}
	return out
}
