package vital

import (
	"fmt"
	"math"
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// Type 生命徵象類型
type Type string

const (
	BloodPressure Type = "blood_pressure"
	Glucose       Type = "glucose"
	HbA1c         Type = "hba1c"
	LDL           Type = "ldl"
	HDL           Type = "hdl"
	Triglycerides Type = "triglycerides"
	EGFR          Type = "egfr"
	UricAcid      Type = "uric_acid"
)

// Level 分級結果
type Level string

const (
	Normal     Level = "normal"
	Borderline Level = "borderline"
	Low        Level = "low"
	High       Level = "high"
	Critical   Level = "critical"
)

// Rank 嚴重度排序，數字越大越嚴重
func (l Level) Rank() int {
	switch l {
	case Borderline:
		return 1
	case Low:
		return 2
	case High:
		return 3
	case Critical:
		return 4
	default:
		return 0
	}
}

// Abnormal 非 normal 即視為異常
func (l Level) Abnormal() bool {
	return l != Normal && l != ""
}

// Context 量測情境，目前只影響血糖
type Context string

const (
	Fasting  Context = "fasting"
	PostMeal Context = "post_meal"
	Random   Context = "random"
)

// Status 分級後的生命徵象
type Status struct {
	Type    Type      `json:"type"`
	Level   Level     `json:"level"`
	Values  []float64 `json:"values"`
	Unit    string    `json:"unit"`
	Context Context   `json:"context,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// band 數值小於 below 時落在 level；最後一段為 +Inf
type band struct {
	below float64
	level Level
}

type bandSet struct {
	unit  string
	bands []band
}

var inf = math.Inf(1)

var (
	systolicBands = []band{
		{90, Low}, {120, Normal}, {140, Borderline}, {180, High}, {inf, Critical},
	}
	diastolicBands = []band{
		{60, Low}, {80, Normal}, {100, Borderline}, {120, High}, {inf, Critical},
	}
	glucoseBands = map[Context][]band{
		Fasting:  {{54, Critical}, {70, Low}, {100, Normal}, {126, Borderline}, {250, High}, {inf, Critical}},
		PostMeal: {{54, Critical}, {70, Low}, {140, Normal}, {200, Borderline}, {300, High}, {inf, Critical}},
		Random:   {{54, Critical}, {70, Low}, {140, Normal}, {200, Borderline}, {300, High}, {inf, Critical}},
	}
)

var singleValue = map[Type]bandSet{
	HbA1c:         {unit: "%", bands: []band{{5.7, Normal}, {6.5, Borderline}, {10, High}, {inf, Critical}}},
	LDL:           {unit: "mg/dL", bands: []band{{100, Normal}, {160, Borderline}, {190, High}, {inf, Critical}}},
	HDL:           {unit: "mg/dL", bands: []band{{40, Low}, {inf, Normal}}},
	Triglycerides: {unit: "mg/dL", bands: []band{{150, Normal}, {200, Borderline}, {500, High}, {inf, Critical}}},
	EGFR:          {unit: "mL/min/1.73m²", bands: []band{{15, Critical}, {60, Low}, {90, Borderline}, {inf, Normal}}},
	UricAcid:      {unit: "mg/dL", bands: []band{{2.5, Low}, {6, Normal}, {7, Borderline}, {10, High}, {inf, Critical}}},
}

func classify(value float64, bands []band) Level {
	for _, b := range bands {
		if value < b.below {
			return b.level
		}
	}
	return bands[len(bands)-1].level
}

// ParseType 解析生命徵象類型字串
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "bp", "blood-pressure":
		return BloodPressure, nil
	case "a1c", "hb_a1c":
		return HbA1c, nil
	case "tg":
		return Triglycerides, nil
	case "uric", "uric-acid":
		return UricAcid, nil
	}
	if t == BloodPressure || t == Glucose {
		return t, nil
	}
	if _, ok := singleValue[t]; ok {
		return t, nil
	}
	return "", common.NewFieldError("type", "unrecognized vital type %q", s)
}

// ParseContext 解析量測情境，空字串視為 random
func ParseContext(s string) (Context, error) {
	c := Context(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "":
		return Random, nil
	case Fasting, PostMeal, Random:
		return c, nil
	case "postprandial", "post-meal":
		return PostMeal, nil
	}
	return "", common.NewFieldError("context", "unrecognized context %q", s)
}

// Classify 將讀數分級。血壓需要兩個數值（收縮壓、舒張壓），其餘一個。
func Classify(t Type, values []float64, context Context) (Status, error) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return Status{}, common.NewFieldError("values", "reading must be a positive number, got %v", v)
		}
	}

	switch t {
	case BloodPressure:
		return classifyBloodPressure(values)
	case Glucose:
		return classifyGlucose(values, context)
	}

	s, ok := singleValue[t]
	if !ok {
		return Status{}, common.NewFieldError("type", "unrecognized vital type %q", t)
	}
	if len(values) != 1 {
		return Status{}, common.NewFieldError("values", "%s expects exactly one reading, got %d", t, len(values))
	}
	return Status{
		Type:   t,
		Level:  classify(values[0], s.bands),
		Values: []float64{values[0]},
		Unit:   s.unit,
	}, nil
}

// classifyBloodPressure 取收縮壓與舒張壓兩者中較嚴重的分級，而非平均
func classifyBloodPressure(values []float64) (Status, error) {
	if len(values) != 2 {
		return Status{}, common.NewFieldError("values", "blood_pressure expects systolic and diastolic, got %d values", len(values))
	}
	systolic, diastolic := values[0], values[1]
	if diastolic >= systolic {
		return Status{}, common.NewFieldError("values", "diastolic %v must be lower than systolic %v", diastolic, systolic)
	}

	sys := classify(systolic, systolicBands)
	dia := classify(diastolic, diastolicBands)
	level := sys
	if dia.Rank() > sys.Rank() {
		level = dia
	}

	return Status{
		Type:   BloodPressure,
		Level:  level,
		Values: []float64{systolic, diastolic},
		Unit:   "mmHg",
		Detail: fmt.Sprintf("systolic %s, diastolic %s", sys, dia),
	}, nil
}

func classifyGlucose(values []float64, context Context) (Status, error) {
	if len(values) != 1 {
		return Status{}, common.NewFieldError("values", "glucose expects exactly one reading, got %d", len(values))
	}
	if context == "" {
		context = Random
	}
	bands, ok := glucoseBands[context]
	if !ok {
		return Status{}, common.NewFieldError("context", "unrecognized glucose context %q", context)
	}
	return Status{
		Type:    Glucose,
		Level:   classify(values[0], bands),
		Values:  []float64{values[0]},
		Unit:    "mg/dL",
		Context: context,
	}, nil
}

// CKDStageFromEGFR 依 KDIGO 將 eGFR 對應到 CKD 分期 1-5（3a/3b 合併為 3）
func CKDStageFromEGFR(egfr float64) (int, error) {
	if math.IsNaN(egfr) || egfr <= 0 {
		return 0, common.NewFieldError("egfr", "must be a positive number, got %v", egfr)
	}
	switch {
	case egfr >= 90:
		return 1, nil
	case egfr >= 60:
		return 2, nil
	case egfr >= 30:
		return 3, nil
	case egfr >= 15:
		return 4, nil
	default:
		return 5, nil
	}
}

// Describe 產生給使用者看的簡短描述，例如 "blood pressure high (150/95 mmHg)"
func (s Status) Describe() string {
	label := strings.ReplaceAll(string(s.Type), "_", " ")
	switch s.Type {
	case HbA1c, LDL, HDL, EGFR:
		label = strings.ToUpper(string(s.Type))
		if s.Type == HbA1c {
			label = "HbA1c"
		} else if s.Type == EGFR {
			label = "eGFR"
		}
	}
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("%s %s (%s %s)", label, s.Level, strings.Join(parts, "/"), s.Unit)
}
