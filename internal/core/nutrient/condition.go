package nutrient

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// ConditionCode 健康狀況代碼
type ConditionCode string

const (
	Diabetes     ConditionCode = "diabetes"
	Hypertension ConditionCode = "hypertension"
	Dyslipidemia ConditionCode = "dyslipidemia"
	CKD          ConditionCode = "ckd"
	Gout         ConditionCode = "gout"
)

var conditionAliases = map[string]ConditionCode{
	"dm":               Diabetes,
	"t2dm":             Diabetes,
	"diabetes_type2":   Diabetes,
	"htn":              Hypertension,
	"high_cholesterol": Dyslipidemia,
	"hyperlipidemia":   Dyslipidemia,
	"kidney":           CKD,
	"kidney_disease":   CKD,
	"hyperuricemia":    Gout,
}

// ckd:3, ckd_stage_3, ckd-stage-4, ckd5d
var ckdStagePattern = regexp.MustCompile(`^(?:ckd|kidney)[\s_:\-]*(?:stage[\s_:\-]*)?([1-5])(d)?$`)

// Condition 單一健康狀況；Stage 只對 CKD 有意義，0 代表未指定
type Condition struct {
	Code     ConditionCode `json:"code"`
	Stage    int           `json:"stage,omitempty"`
	Dialysis bool          `json:"dialysis,omitempty"`
}

// ParseCondition 解析健康狀況字串，未知代碼回傳驗證錯誤
func ParseCondition(s string) (Condition, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if m := ckdStagePattern.FindStringSubmatch(key); m != nil {
		stage, _ := strconv.Atoi(m[1])
		return Condition{Code: CKD, Stage: stage, Dialysis: m[2] == "d"}, nil
	}
	if c, ok := conditionAliases[key]; ok {
		return Condition{Code: c}, nil
	}
	switch ConditionCode(key) {
	case Diabetes, Hypertension, Dyslipidemia, CKD, Gout:
		return Condition{Code: ConditionCode(key)}, nil
	}
	return Condition{}, common.NewFieldError("conditions", "unknown condition code %q", s)
}

// effectiveStage 未指定分期的 CKD 以第 3 期處理，透析視為第 5 期
func (c Condition) effectiveStage() int {
	if c.Dialysis {
		return 5
	}
	if c.Stage == 0 {
		return 3
	}
	return c.Stage
}

// Profile 使用者的健康狀況組合
type Profile struct {
	Conditions []Condition      `json:"conditions"`
	Primary    ConditionCode    `json:"primary,omitempty"`
	WeightKg   *float64         `json:"weight_kg,omitempty"`
	Overrides  map[Code]float64 `json:"overrides,omitempty"`
}

// Validate 檢查 profile 內容，policy 決定哪些代碼合法
func (p Profile) Validate(policy Policy) error {
	seen := make(map[ConditionCode]bool, len(p.Conditions))
	for _, c := range p.Conditions {
		if _, ok := policy.Conditions[c.Code]; !ok {
			return common.NewFieldError("conditions", "unknown condition code %q", c.Code)
		}
		if c.Stage < 0 || c.Stage > 5 {
			return common.NewFieldError("conditions", "stage must be between 1 and 5, got %d", c.Stage)
		}
		if (c.Stage != 0 || c.Dialysis) && c.Code != CKD {
			return common.NewFieldError("conditions", "stage is only valid for %s", CKD)
		}
		seen[c.Code] = true
	}
	if p.Primary != "" && !seen[p.Primary] {
		return common.NewFieldError("primary", "primary condition %q is not in the active conditions", p.Primary)
	}
	if p.WeightKg != nil {
		if err := validateWeight(*p.WeightKg); err != nil {
			return err
		}
	}
	for code, v := range p.Overrides {
		if _, ok := Lookup(code); !ok {
			return common.NewFieldError("overrides", "unknown nutrient code %q", code)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return common.NewFieldError("overrides", "%s override must be a positive number, got %v", code, v)
		}
	}
	return nil
}

func validateWeight(w float64) error {
	if math.IsNaN(w) || w <= 0 || w > 500 {
		return common.NewFieldError("weight_kg", "must be between 0 and 500, got %v", w)
	}
	return nil
}

// ParseProfile 由字串清單建立 profile（CLI 與 API 共用）
func ParseProfile(conditions []string, primary string, overrides map[string]float64) (Profile, error) {
	p := Profile{}
	for _, raw := range conditions {
		c, err := ParseCondition(raw)
		if err != nil {
			return Profile{}, err
		}
		p.Conditions = append(p.Conditions, c)
	}
	if primary != "" {
		c, err := ParseCondition(primary)
		if err != nil {
			return Profile{}, err
		}
		p.Primary = c.Code
	}
	if len(overrides) > 0 {
		p.Overrides = make(map[Code]float64, len(overrides))
		for k, v := range overrides {
			code, err := ParseCode(k)
			if err != nil {
				return Profile{}, err
			}
			p.Overrides[code] = v
		}
	}
	return p, nil
}
