package food

import (
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// 辨識度高的菜名與詞根，出現在名稱任何位置都算（"nasik"、"kueyteow" 也會命中）
var regionalFragments = []string{
	"nasi", "kuey", "kway", "teow", "laksa", "rendang", "canai", "thosai", "dosai",
	"kuih", "kueh", "lemang", "ketupat", "rojak", "cendol", "popiah", "lontong",
	"murtabak", "bihun", "mihun", "keropok", "tauhu", "taugeh", "kangkung",
	"briyani", "biryani", "tandoori", "goreng", "berempah", "belacan", "sambal",
	"tomyam", "kicap", "santan", "mamak", "horlicks", "wantan",
}

// 短字或容易出現在英文單字中的關鍵字，只比對完整的詞
var regionalWords = []string{
	// 菜名
	"mee", "mi", "roti", "satay", "sate", "apam", "ais kacang", "abc", "yong tau",
	"bak kut", "char siu", "siew", "wonton", "dim sum", "otak", "pisang", "tempe",
	"ckt", "naan", "curry",
	// 烹調方式
	"rebus", "bakar", "panggang", "kukus", "masak", "lemak", "kari", "asam",
	"tom yam", "percik", "merah", "char", "hainan", "claypot",
	// 食材
	"ayam", "ikan", "daging", "kambing", "udang", "sotong", "telur", "sayur",
	"ketam", "lembu", "itik",
	// 飲料修飾詞
	"teh", "kopi", "tarik", "peng", "ais", "limau", "sirap", "bandung", "milo",
	"halia", "kosong",
	// 變體
	"maggi", "kolo",
}

// IsRegional 名稱中含有區域菜名片段，或含有任一區域關鍵字詞，即視為可能屬於區域料理
func IsRegional(name string) bool {
	words := strings.Fields(punctuationRegex.ReplaceAllString(strings.ToLower(name), " "))
	if len(words) == 0 {
		return false
	}
	padded := " " + strings.Join(words, " ") + " "

	if common.ContainsAny(padded, regionalFragments...) {
		return true
	}
	for _, kw := range regionalWords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}
