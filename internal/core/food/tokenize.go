package food

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "with": true, "without": true,
	"dan": true, "dengan": true, "tanpa": true, "yang": true,
	"plate": true, "bowl": true, "cup": true, "glass": true, "serving": true,
	"pinggan": true, "mangkuk": true, "gelas": true, "set": true,
	"small": true, "medium": true, "large": true, "some": true,
}

// normalizeName 轉小寫並合併空白，用於完全比對
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// tokenize 拆成小寫 token，移除標點、停用詞、單字元與純數字
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// leadingToken 第一個長度至少 3 的 token
func leadingToken(tokens []string) string {
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= 3 {
			return t
		}
	}
	return ""
}
