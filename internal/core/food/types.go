package food

import (
	"context"
	"errors"
	"strings"

	"nutrition-engine/internal/core/nutrient"
)

// ErrNotFound Store 查無資料時回傳
var ErrNotFound = errors.New("food not found")

// Source 結果來源，每個結果只會有一個
type Source string

const (
	SourceRegional  Source = "regional"
	SourceGeneral   Source = "general"
	SourceEstimated Source = "estimated"
)

// Tier 產生結果的比對策略
type Tier string

const (
	TierExact       Tier = "exact"
	TierAlias       Tier = "alias"
	TierFuzzyStrict Tier = "fuzzy-strict"
	TierFuzzyLoose  Tier = "fuzzy-loose"
	TierFuzzySingle Tier = "fuzzy-single"
	TierEstimated   Tier = "estimated"
)

// 各策略的固定信心值
const (
	confidenceExact       = 1.0
	confidenceAlias       = 0.95
	confidenceFuzzyStrict = 0.9
	confidenceFuzzyLoose  = 0.75
	confidenceFuzzySingle = 0.7
)

// Record 食物資料，儲存後不再修改
type Record struct {
	ID               string                            `json:"id"`
	Name             string                            `json:"name"`
	LocalName        string                            `json:"local_name,omitempty"`
	Aliases          []string                          `json:"aliases,omitempty"`
	Tags             []string                          `json:"tags,omitempty"`
	Serving          string                            `json:"serving,omitempty"`
	ServingGrams     float64                           `json:"serving_grams,omitempty"`
	Nutrients        nutrient.Amounts                  `json:"nutrients"`
	GlycemicIndex    float64                           `json:"glycemic_index,omitempty"`
	GlycemicCategory string                            `json:"glycemic_category,omitempty"`
	Ratings          map[nutrient.ConditionCode]string `json:"ratings,omitempty"`
	Corpus           Source                            `json:"corpus"`
	Verified         bool                              `json:"verified"`
	Popularity       float64                           `json:"popularity"`
}

// Scale 依份量倍數換算營養素；倍數 1.0 會得到與原本相同的數值
func (r Record) Scale(multiplier float64) (nutrient.Amounts, error) {
	return r.Nutrients.Scale(multiplier)
}

// RatingFor 取得預先計算好的疾病評等，沒有資料時回傳空字串
func (r Record) RatingFor(c nutrient.ConditionCode) string {
	return r.Ratings[c]
}

// nameFields 名稱、在地名稱與別名合併後的小寫字串，供子字串比對
func (r Record) nameFields() string {
	parts := make([]string, 0, len(r.Aliases)+2)
	parts = append(parts, r.Name, r.LocalName)
	parts = append(parts, r.Aliases...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Match 單一 matcher 的輸出
type Match struct {
	Record     Record  `json:"record"`
	Confidence float64 `json:"confidence"`
	Tier       Tier    `json:"tier"`
	Corpus     Source  `json:"corpus"`
}

// MatchResult 解析結果。Source 為 estimated 時 RequiresVerification 必為 true。
type MatchResult struct {
	Matched              bool              `json:"matched"`
	Source               Source            `json:"source"`
	Tier                 Tier              `json:"tier"`
	Name                 string            `json:"name"`
	Food                 *Record           `json:"food,omitempty"`
	Estimate             nutrient.Amounts  `json:"estimate,omitempty"`
	Confidence           float64           `json:"confidence"`
	RequiresVerification bool              `json:"requires_verification"`
	Reason               string            `json:"reason"`
	Suggestion           *Match            `json:"suggestion,omitempty"`
	Protein              ProteinAssessment `json:"protein"`
}

// Nutrients 已比對時為資料庫數值，否則為呼叫端的估計值
func (m MatchResult) Nutrients() nutrient.Amounts {
	if m.Food != nil {
		return m.Food.Nutrients
	}
	return m.Estimate
}

// Store 單一食物資料庫的唯讀查詢介面。
// 查無資料時 FindBy* 回傳 ErrNotFound，Search 回傳空切片。
type Store interface {
	FindByName(ctx context.Context, name string) (*Record, error)
	FindByAlias(ctx context.Context, alias string) (*Record, error)
	Search(ctx context.Context, tokens []string, limit int) ([]Record, error)
	FindByFragment(ctx context.Context, fragment string) (*Record, error)
}
