package nutrient

import (
	"math"

	"nutrition-engine/internal/pkg/common"
)

// Bands 嚴重度門檻（百分比）
type Bands struct {
	CautionAt      float64 // 上限型：達到此百分比起為 caution
	LimitAbove     float64 // 上限型：超過此百分比為 limit
	GoalLimitBelow float64 // 目標型：低於此百分比為 limit
	GoalSafeAt     float64 // 目標型：達到此百分比起為 safe
}

// StageRule CKD 分期達到 MinStage 時額外套用的限制
type StageRule struct {
	MinStage int
	Limits   map[Code]float64
}

// ProteinRule 依體重換算蛋白質（g/kg），方向可為上限或目標
type ProteinRule struct {
	MinStage  int
	MaxStage  int
	Dialysis  bool
	PerKg     float64
	Direction Direction
}

func (r ProteinRule) matches(c Condition) bool {
	if r.Dialysis || c.Dialysis {
		return r.Dialysis && c.Dialysis
	}
	stage := c.effectiveStage()
	return stage >= r.MinStage && stage <= r.MaxStage
}

// ConditionRule 單一健康狀況對各營養素的要求
type ConditionRule struct {
	Limits  map[Code]float64
	Stages  []StageRule
	Protein []ProteinRule
}

// Policy 目標計算與警示評估共用的設定：預設值、疾病對照表、門檻
type Policy struct {
	Defaults           map[Code]float64
	NormalProteinPerKg float64
	ReferenceWeightKg  float64
	Conditions         map[ConditionCode]ConditionRule
	Bands              Bands
}

// DefaultPolicy 內建的營養政策
func DefaultPolicy() Policy {
	return Policy{
		Defaults: map[Code]float64{
			Energy:       2000,
			Carbohydrate: 275,
			Sugar:        50,
			Fiber:        25,
			Sodium:       2300,
			TotalFat:     78,
			SaturatedFat: 20,
			TransFat:     2,
			Cholesterol:  300,
		},
		NormalProteinPerKg: 0.8,
		ReferenceWeightKg:  60,
		Conditions: map[ConditionCode]ConditionRule{
			Hypertension: {
				Limits: map[Code]float64{Sodium: 1500, SaturatedFat: 13},
			},
			Diabetes: {
				Limits: map[Code]float64{Sugar: 25, Carbohydrate: 180, Fiber: 30},
			},
			Dyslipidemia: {
				Limits: map[Code]float64{SaturatedFat: 13, Cholesterol: 200, TransFat: 1, TotalFat: 60, Fiber: 30},
			},
			CKD: {
				Limits: map[Code]float64{Sodium: 2000, Phosphorus: 1000},
				Stages: []StageRule{
					{MinStage: 3, Limits: map[Code]float64{Potassium: 2000, Phosphorus: 800}},
				},
				Protein: []ProteinRule{
					{MinStage: 1, MaxStage: 2, PerKg: 0.8, Direction: Ceiling},
					{MinStage: 3, MaxStage: 5, PerKg: 0.6, Direction: Ceiling},
					{Dialysis: true, PerKg: 1.2, Direction: Goal},
				},
			},
			Gout: {
				Limits: map[Code]float64{Sugar: 25},
			},
		},
		Bands: Bands{CautionAt: 80, LimitAbove: 100, GoalLimitBelow: 50, GoalSafeAt: 80},
	}
}

// WithDefaults 以設定檔覆寫全域預設值，回傳新的 Policy
func (p Policy) WithDefaults(overrides map[string]float64) (Policy, error) {
	if len(overrides) == 0 {
		return p, nil
	}
	defaults := make(map[Code]float64, len(p.Defaults)+len(overrides))
	for k, v := range p.Defaults {
		defaults[k] = v
	}
	for k, v := range overrides {
		code, err := ParseCode(k)
		if err != nil {
			return Policy{}, err
		}
		if code == Protein {
			return Policy{}, common.NewFieldError("defaults", "protein default is derived from body weight and cannot be set")
		}
		if math.IsNaN(v) || v <= 0 {
			return Policy{}, common.NewFieldError("defaults", "%s default must be positive, got %v", code, v)
		}
		defaults[code] = v
	}
	p.Defaults = defaults
	return p, nil
}

// WithReferenceWeight 覆寫未提供體重時使用的參考體重
func (p Policy) WithReferenceWeight(kg float64) (Policy, error) {
	if kg == 0 {
		return p, nil
	}
	if err := validateWeight(kg); err != nil {
		return Policy{}, err
	}
	p.ReferenceWeightKg = kg
	return p, nil
}
