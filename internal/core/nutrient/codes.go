package nutrient

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// Code 營養素代碼
type Code string

const (
	Energy       Code = "energy"
	Carbohydrate Code = "carbohydrate"
	Sugar        Code = "sugar"
	Fiber        Code = "fiber"
	Sodium       Code = "sodium"
	Potassium    Code = "potassium"
	TotalFat     Code = "total_fat"
	SaturatedFat Code = "saturated_fat"
	TransFat     Code = "trans_fat"
	Cholesterol  Code = "cholesterol"
	Protein      Code = "protein"
	Phosphorus   Code = "phosphorus"
)

// Direction 目標方向：ceiling 為上限，goal 為應達到的下限
type Direction string

const (
	Ceiling Direction = "ceiling"
	Goal    Direction = "goal"
)

// Info 營養素基本資料
type Info struct {
	Code      Code
	Label     string
	Unit      string
	Direction Direction
}

var catalog = map[Code]Info{
	Energy:       {Energy, "Energy", "kcal", Ceiling},
	Carbohydrate: {Carbohydrate, "Carbohydrate", "g", Ceiling},
	Sugar:        {Sugar, "Sugar", "g", Ceiling},
	Fiber:        {Fiber, "Fiber", "g", Goal},
	Sodium:       {Sodium, "Sodium", "mg", Ceiling},
	Potassium:    {Potassium, "Potassium", "mg", Ceiling},
	TotalFat:     {TotalFat, "Total fat", "g", Ceiling},
	SaturatedFat: {SaturatedFat, "Saturated fat", "g", Ceiling},
	TransFat:     {TransFat, "Trans fat", "g", Ceiling},
	Cholesterol:  {Cholesterol, "Cholesterol", "mg", Ceiling},
	Protein:      {Protein, "Protein", "g", Goal},
	Phosphorus:   {Phosphorus, "Phosphorus", "mg", Ceiling},
}

// 常見別名（來自各資料源的欄位名稱）
var codeAliases = map[string]Code{
	"kcal":           Energy,
	"calories":       Energy,
	"enerc_kcal":     Energy,
	"carbs":          Carbohydrate,
	"carb":           Carbohydrate,
	"chocdf":         Carbohydrate,
	"sugars":         Sugar,
	"fibre":          Fiber,
	"fibtg":          Fiber,
	"na":             Sodium,
	"k":              Potassium,
	"fat":            TotalFat,
	"sat_fat":        SaturatedFat,
	"fasat":          SaturatedFat,
	"fatrn":          TransFat,
	"chole":          Cholesterol,
	"procnt":         Protein,
	"p":              Phosphorus,
	"saturated-fat":  SaturatedFat,
	"trans-fat":      TransFat,
	"carbohydrates":  Carbohydrate,
	"proteins":       Protein,
	"total-fat":      TotalFat,
	"dietary_fiber":  Fiber,
	"dietary-fiber":  Fiber,
	"total_sugars":   Sugar,
	"total_sugar":    Sugar,
	"sodium_mg":      Sodium,
	"potassium_mg":   Potassium,
	"phosphorus_mg":  Phosphorus,
	"cholesterol_mg": Cholesterol,
}

// Lookup 取得營養素資料
func Lookup(code Code) (Info, bool) {
	info, ok := catalog[code]
	return info, ok
}

// All 依字母順序回傳所有追蹤的營養素
func All() []Code {
	codes := make([]Code, 0, len(catalog))
	for c := range catalog {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// ParseCode 解析營養素代碼，接受常見別名
func ParseCode(s string) (Code, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := catalog[Code(key)]; ok {
		return Code(key), nil
	}
	if c, ok := codeAliases[key]; ok {
		return c, nil
	}
	return "", common.NewFieldError("nutrient", "unknown nutrient code %q", s)
}

// Amounts 營養素數量。缺少的 key 代表資料不存在，而不是 0。
type Amounts map[Code]float64

// ParseAmounts 將外部 map 轉換為 Amounts，並驗證代碼與數值
func ParseAmounts(raw map[string]float64) (Amounts, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Amounts, len(raw))
	for k, v := range raw {
		code, err := ParseCode(k)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, common.NewFieldError(string(code), "amount must be a non-negative number, got %v", v)
		}
		out[code] = v
	}
	return out, nil
}

// Get 取得數量，ok=false 代表缺資料
func (a Amounts) Get(code Code) (float64, bool) {
	v, ok := a[code]
	return v, ok
}

// Clone 複製一份
func (a Amounts) Clone() Amounts {
	if a == nil {
		return nil
	}
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Scale 依份量倍數換算，回傳新的 map
func (a Amounts) Scale(multiplier float64) (Amounts, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier < 0 {
		return nil, common.NewFieldError("servings", "multiplier must be a non-negative number, got %v", multiplier)
	}
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v * multiplier
	}
	return out, nil
}

// Plus 相加兩份數量；只要任一方有資料該營養素就存在
func (a Amounts) Plus(other Amounts) Amounts {
	out := a.Clone()
	if out == nil {
		out = make(Amounts, len(other))
	}
	for k, v := range other {
		out[k] += v
	}
	return out
}

func (i Info) format(v float64) string {
	return fmt.Sprintf("%g %s", common.Round2(v), i.Unit)
}
