package nutrient

import (
	"math"
	"sort"
)

// Provenance 目標值的來源
type Provenance string

const (
	ProvenanceOverride  Provenance = "override"
	ProvenanceCondition Provenance = "condition"
	ProvenanceDefault   Provenance = "default"
)

// Target 單一營養素的解析結果
type Target struct {
	Nutrient   Code          `json:"nutrient"`
	Value      float64       `json:"value"`
	Unit       string        `json:"unit"`
	Direction  Direction     `json:"direction"`
	Provenance Provenance    `json:"provenance"`
	Condition  ConditionCode `json:"condition,omitempty"`
}

// TargetSet 每次呼叫重新計算，不會被部分修改
type TargetSet map[Code]Target

// Codes 依字母順序回傳有目標的營養素
func (s TargetSet) Codes() []Code {
	codes := make([]Code, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Engine 目標計算與警示評估，兩者共用同一份 Policy
type Engine struct {
	policy Policy
}

// NewEngine 創建營養引擎
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy 取得目前的政策設定
func (e *Engine) Policy() Policy {
	return e.policy
}

type candidate struct {
	value     float64
	direction Direction
	condition ConditionCode
}

// Targets 依優先順序解析每個營養素：使用者覆寫 > 各疾病中最嚴格者 > 全域預設。
// weightKg 不為 nil 時優先於 profile 內的體重。
func (e *Engine) Targets(p Profile, weightKg *float64) (TargetSet, error) {
	if err := p.Validate(e.policy); err != nil {
		return nil, err
	}

	weight := e.policy.ReferenceWeightKg
	switch {
	case weightKg != nil:
		if err := validateWeight(*weightKg); err != nil {
			return nil, err
		}
		weight = *weightKg
	case p.WeightKg != nil:
		weight = *p.WeightKg
	}

	candidates := e.conditionCandidates(p, weight)

	set := make(TargetSet, len(catalog))
	for _, code := range All() {
		info := catalog[code]
		t, ok := Target{}, false

		switch {
		case len(candidates[code]) > 0:
			t, ok = mostRestrictive(candidates[code], p.Primary), true
			t.Provenance = ProvenanceCondition
		case code == Protein:
			t = Target{Value: round1(e.policy.NormalProteinPerKg * weight), Direction: Goal, Provenance: ProvenanceDefault}
			ok = true
		default:
			if v, has := e.policy.Defaults[code]; has {
				t = Target{Value: v, Direction: info.Direction, Provenance: ProvenanceDefault}
				ok = true
			}
		}

		if v, has := p.Overrides[code]; has {
			if !ok {
				t.Direction = info.Direction
			}
			t.Value = v
			t.Provenance = ProvenanceOverride
			t.Condition = ""
			ok = true
		}

		if ok {
			t.Nutrient = code
			t.Unit = info.Unit
			set[code] = t
		}
	}
	return set, nil
}

func (e *Engine) conditionCandidates(p Profile, weight float64) map[Code][]candidate {
	out := make(map[Code][]candidate)
	add := func(code Code, v float64, dir Direction, cond ConditionCode) {
		out[code] = append(out[code], candidate{value: v, direction: dir, condition: cond})
	}

	for _, c := range p.Conditions {
		rule := e.policy.Conditions[c.Code]
		for code, v := range rule.Limits {
			add(code, v, catalog[code].Direction, c.Code)
		}
		for _, s := range rule.Stages {
			if c.effectiveStage() < s.MinStage {
				continue
			}
			for code, v := range s.Limits {
				add(code, v, catalog[code].Direction, c.Code)
			}
		}
		for _, pr := range rule.Protein {
			if pr.matches(c) {
				add(Protein, round1(pr.PerKg*weight), pr.Direction, c.Code)
				break
			}
		}
	}
	return out
}

// mostRestrictive 上限取最小值、目標取最大值；同時存在時上限優先。
// 數值相同時優先歸屬 primary，其次依代碼排序，確保結果穩定。
func mostRestrictive(cands []candidate, primary ConditionCode) Target {
	hasCeiling := false
	for _, c := range cands {
		if c.direction == Ceiling {
			hasCeiling = true
			break
		}
	}

	var best *candidate
	for i := range cands {
		c := &cands[i]
		if hasCeiling && c.direction != Ceiling {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		better := (hasCeiling && c.value < best.value) || (!hasCeiling && c.value > best.value)
		if better || (c.value == best.value && preferCondition(c.condition, best.condition, primary)) {
			best = c
		}
	}
	return Target{Value: best.value, Direction: best.direction, Condition: best.condition}
}

func preferCondition(a, b, primary ConditionCode) bool {
	if a == primary && b != primary {
		return true
	}
	if b == primary {
		return false
	}
	return a < b
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
