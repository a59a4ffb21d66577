package nutrient

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"nutrition-engine/internal/core/vital"
)

// Severity 警示等級
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityCaution Severity = "caution"
	SeverityLimit   Severity = "limit"
)

// Rank 排序用，數字越大越嚴重
func (s Severity) Rank() int {
	switch s {
	case SeverityLimit:
		return 2
	case SeverityCaution:
		return 1
	default:
		return 0
	}
}

// Warning 單一營養素的評估結果
type Warning struct {
	Nutrient  Code      `json:"nutrient"`
	Severity  Severity  `json:"severity"`
	Percent   float64   `json:"percent_of_target"`
	Amount    float64   `json:"amount"`
	Target    float64   `json:"target"`
	Unit      string    `json:"unit"`
	Direction Direction `json:"direction"`
	Message   string    `json:"message"`
	VitalNote string    `json:"vital_note,omitempty"`

	deviation float64
}

// 生理數值與營養素的關聯，用於在警示上附註近期異常數值
var vitalRelations = map[vital.Type][]Code{
	vital.BloodPressure: {Sodium},
	vital.Glucose:       {Sugar, Carbohydrate},
	vital.HbA1c:         {Sugar, Carbohydrate},
	vital.LDL:           {SaturatedFat, Cholesterol, TransFat},
	vital.HDL:           {TransFat, SaturatedFat},
	vital.Triglycerides: {Sugar, SaturatedFat, TotalFat},
	vital.EGFR:          {Protein, Phosphorus, Potassium},
	vital.UricAcid:      {Sugar},
}

// Evaluate 比較攝取量與目標，回傳依嚴重度排序的警示。
// 沒有攝取資料或沒有目標的營養素不會出現在結果中。
// vitals 中的異常數值會附註在相關且非 safe 的警示上。
func (e *Engine) Evaluate(targets TargetSet, amounts Amounts, vitals ...vital.Status) []Warning {
	notes := vitalNotes(vitals)

	warnings := make([]Warning, 0, len(targets))
	for _, code := range targets.Codes() {
		t := targets[code]
		amount, ok := amounts.Get(code)
		if !ok || t.Value <= 0 {
			continue
		}

		pct := amount / t.Value * 100
		w := Warning{
			Nutrient:  code,
			Severity:  e.severity(t.Direction, pct),
			Percent:   math.Round(pct*10) / 10,
			Amount:    amount,
			Target:    t.Value,
			Unit:      t.Unit,
			Direction: t.Direction,
			deviation: math.Abs(pct - 100),
		}
		w.Message = message(code, w, pct)
		if w.Severity != SeveritySafe {
			w.VitalNote = strings.Join(notes[code], "; ")
		}
		warnings = append(warnings, w)
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.deviation != b.deviation {
			return a.deviation > b.deviation
		}
		return a.Nutrient < b.Nutrient
	})
	return warnings
}

func (e *Engine) severity(dir Direction, pct float64) Severity {
	b := e.policy.Bands
	if dir == Goal {
		switch {
		case pct < b.GoalLimitBelow:
			return SeverityLimit
		case pct < b.GoalSafeAt:
			return SeverityCaution
		default:
			return SeveritySafe
		}
	}
	switch {
	case pct > b.LimitAbove:
		return SeverityLimit
	case pct >= b.CautionAt:
		return SeverityCaution
	default:
		return SeveritySafe
	}
}

func message(code Code, w Warning, pct float64) string {
	info := catalog[code]
	target := info.format(w.Target)
	p := fmt.Sprintf("%.0f%%", pct)

	if w.Direction == Goal {
		switch w.Severity {
		case SeverityLimit:
			return fmt.Sprintf("%s is well below your %s goal (%s).", info.Label, target, p)
		case SeverityCaution:
			return fmt.Sprintf("%s is below your %s goal (%s).", info.Label, target, p)
		default:
			return fmt.Sprintf("%s meets your %s goal (%s).", info.Label, target, p)
		}
	}
	switch w.Severity {
	case SeverityLimit:
		return fmt.Sprintf("%s exceeds your %s limit at %s (%s).", info.Label, target, info.format(w.Amount), p)
	case SeverityCaution:
		return fmt.Sprintf("%s is approaching your %s limit (%s).", info.Label, target, p)
	default:
		return fmt.Sprintf("%s is within your %s limit (%s).", info.Label, target, p)
	}
}

func vitalNotes(vitals []vital.Status) map[Code][]string {
	if len(vitals) == 0 {
		return nil
	}
	out := make(map[Code][]string)
	for _, st := range vitals {
		if !st.Level.Abnormal() {
			continue
		}
		for _, code := range vitalRelations[st.Type] {
			out[code] = append(out[code], "recent "+st.Describe())
		}
	}
	return out
}
