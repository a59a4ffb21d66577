package food

import (
	"fmt"
	"sort"
	"strings"
)

// ProteinCategory 推斷出的主要蛋白質來源
type ProteinCategory string

const (
	ProteinUnknown   ProteinCategory = "unknown"
	ProteinAmbiguous ProteinCategory = "ambiguous"
	ProteinPork      ProteinCategory = "pork"
	ProteinChicken   ProteinCategory = "chicken"
	ProteinBeef      ProteinCategory = "beef"
	ProteinMutton    ProteinCategory = "mutton"
	ProteinDuck      ProteinCategory = "duck"
	ProteinFish      ProteinCategory = "fish"
	ProteinSeafood   ProteinCategory = "seafood"
	ProteinEgg       ProteinCategory = "egg"
	ProteinSoy       ProteinCategory = "soy"
)

// ProteinAssessment 蛋白質判斷結果。NeedsFlag 代表可能含豬肉但無法確定，需要使用者確認。
type ProteinAssessment struct {
	Category   ProteinCategory   `json:"category"`
	Candidates []ProteinCategory `json:"candidates,omitempty"`
	Ambiguous  bool              `json:"ambiguous"`
	NeedsFlag  bool              `json:"needs_flag"`
	Cue        string            `json:"cue,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// genericLabels 不能當作最終名稱的籠統標籤
var genericLabels = map[string]bool{
	"meat": true, "protein": true, "daging": true, "lauk": true, "lauk pauk": true,
	"meat dish": true, "mixed meat": true, "meat slices": true, "sliced meat": true,
	"roast meat": true, "bbq meat": true, "grilled meat": true, "fried meat": true,
	"side dish": true, "dish": true, "food": true, "makanan": true,
}

// cueRule 視覺線索 → 蛋白質類別；多個類別代表無法從線索判斷
type cueRule struct {
	cue        string
	categories []ProteinCategory
}

var cueRules = []cueRule{
	// 明確為豬肉
	{"char siu", []ProteinCategory{ProteinPork}},
	{"char siew", []ProteinCategory{ProteinPork}},
	{"siew yoke", []ProteinCategory{ProteinPork}},
	{"siu yuk", []ProteinCategory{ProteinPork}},
	{"bak kut teh", []ProteinCategory{ProteinPork}},
	{"lap cheong", []ProteinCategory{ProteinPork}},
	{"lor bak", []ProteinCategory{ProteinPork}},
	{"babi", []ProteinCategory{ProteinPork}},
	{"pork", []ProteinCategory{ProteinPork}},
	{"bacon", []ProteinCategory{ProteinPork}},
	{"ham", []ProteinCategory{ProteinPork}},

	// 外觀相近、無法區分
	{"minced meat", []ProteinCategory{ProteinPork, ProteinChicken}},
	{"meatball", []ProteinCategory{ProteinPork, ProteinBeef, ProteinChicken, ProteinFish}},
	{"meatballs", []ProteinCategory{ProteinPork, ProteinBeef, ProteinChicken, ProteinFish}},
	{"sausage", []ProteinCategory{ProteinPork, ProteinChicken, ProteinBeef}},
	{"sausages", []ProteinCategory{ProteinPork, ProteinChicken, ProteinBeef}},
	{"luncheon meat", []ProteinCategory{ProteinPork, ProteinChicken}},
	{"dumpling", []ProteinCategory{ProteinPork, ProteinChicken, ProteinSeafood}},
	{"dim sum", []ProteinCategory{ProteinPork, ProteinChicken, ProteinSeafood}},
	{"wantan", []ProteinCategory{ProteinPork, ProteinChicken}},
	{"wonton", []ProteinCategory{ProteinPork, ProteinChicken}},
	{"roast meat", []ProteinCategory{ProteinPork, ProteinDuck, ProteinChicken}},
	{"satay", []ProteinCategory{ProteinChicken, ProteinBeef, ProteinMutton}},

	// 明確類別
	{"ayam", []ProteinCategory{ProteinChicken}},
	{"chicken", []ProteinCategory{ProteinChicken}},
	{"daging lembu", []ProteinCategory{ProteinBeef}},
	{"lembu", []ProteinCategory{ProteinBeef}},
	{"beef", []ProteinCategory{ProteinBeef}},
	{"rendang", []ProteinCategory{ProteinBeef, ProteinChicken}},
	{"kambing", []ProteinCategory{ProteinMutton}},
	{"mutton", []ProteinCategory{ProteinMutton}},
	{"lamb", []ProteinCategory{ProteinMutton}},
	{"itik", []ProteinCategory{ProteinDuck}},
	{"duck", []ProteinCategory{ProteinDuck}},
	{"ikan", []ProteinCategory{ProteinFish}},
	{"fish", []ProteinCategory{ProteinFish}},
	{"udang", []ProteinCategory{ProteinSeafood}},
	{"prawn", []ProteinCategory{ProteinSeafood}},
	{"shrimp", []ProteinCategory{ProteinSeafood}},
	{"sotong", []ProteinCategory{ProteinSeafood}},
	{"squid", []ProteinCategory{ProteinSeafood}},
	{"ketam", []ProteinCategory{ProteinSeafood}},
	{"crab", []ProteinCategory{ProteinSeafood}},
	{"telur", []ProteinCategory{ProteinEgg}},
	{"egg", []ProteinCategory{ProteinEgg}},
	{"tauhu", []ProteinCategory{ProteinSoy}},
	{"tofu", []ProteinCategory{ProteinSoy}},
	{"tempe", []ProteinCategory{ProteinSoy}},
}

func init() {
	// 長的線索優先，"daging lembu" 要比 "lembu" 先比對
	sort.SliceStable(cueRules, func(i, j int) bool {
		return len(cueRules[i].cue) > len(cueRules[j].cue)
	})
}

// AssessProtein 依名稱判斷蛋白質來源。
// 籠統標籤與包含豬肉在內的模糊線索都會設定 NeedsFlag。
func AssessProtein(name string) ProteinAssessment {
	tokens := tokenize(name)
	if len(tokens) == 0 {
		return ProteinAssessment{Category: ProteinUnknown}
	}
	joined := strings.Join(tokens, " ")

	if genericLabels[joined] || genericLabels[normalizeName(name)] {
		return ProteinAssessment{
			Category:  ProteinAmbiguous,
			Ambiguous: true,
			NeedsFlag: true,
			Reason:    "generic label does not identify the protein",
		}
	}

	padded := " " + joined + " "
	for _, rule := range cueRules {
		if !strings.Contains(padded, " "+rule.cue+" ") {
			continue
		}
		if len(rule.categories) == 1 {
			return ProteinAssessment{Category: rule.categories[0], Cue: rule.cue}
		}
		a := ProteinAssessment{
			Category:   ProteinAmbiguous,
			Candidates: rule.categories,
			Ambiguous:  true,
			Cue:        rule.cue,
			Reason:     "visual cue matches more than one protein",
		}
		for _, c := range rule.categories {
			if c == ProteinPork {
				a.NeedsFlag = true
				a.Reason = "visual cue could be pork"
			}
		}
		return a
	}
	return ProteinAssessment{Category: ProteinUnknown}
}

func (a ProteinAssessment) categories() []ProteinCategory {
	if len(a.Candidates) > 0 {
		return a.Candidates
	}
	if a.Category == ProteinUnknown || a.Category == ProteinAmbiguous {
		return nil
	}
	return []ProteinCategory{a.Category}
}

func (a ProteinAssessment) label() string {
	if a.Cue != "" {
		return fmt.Sprintf("%s (%q)", a.Category, a.Cue)
	}
	return string(a.Category)
}
