// internal/server/labels.go
package server

import "strings"

const defaultUILanguage = "en"

// uiLabels holds the web UI strings per language. Model output is never translated here.
var uiLabels = map[string]map[string]string{
	"en": {
		"title":         "Street Food Scanner",
		"tagline":       "Snap a photo of a Vietnamese dish to learn what it is.",
		"photo":         "Photo",
		"language":      "Language",
		"scan":          "Scan dish",
		"pronunciation": "Pronunciation",
		"description":   "Description",
		"ingredients":   "Ingredients",
		"calories":      "Calories",
		"allergens":     "Allergens",
		"spiceLevel":    "Spice level",
		"hot":           "Hot",
		"medium":        "Medium",
		"mild":          "Mild",
		"notSpicy":      "Not spicy",
		"culturalNote":  "Cultural note",
		"confidence":    "Confidence",
		"scanAnother":   "Scan another dish",
	},
	"vi": {
		"title":         "Quét Món Ăn Đường Phố",
		"tagline":       "Chụp ảnh một món ăn Việt Nam để biết đó là món gì.",
		"photo":         "Ảnh",
		"language":      "Ngôn ngữ",
		"scan":          "Quét món ăn",
		"pronunciation": "Cách phát âm",
		"description":   "Mô tả",
		"ingredients":   "Nguyên liệu",
		"calories":      "Lượng calo",
		"allergens":     "Chất gây dị ứng",
		"spiceLevel":    "Độ cay",
		"hot":           "Cay nhiều",
		"medium":        "Cay vừa",
		"mild":          "Cay nhẹ",
		"notSpicy":      "Không cay",
		"culturalNote":  "Ghi chú văn hóa",
		"confidence":    "Độ tin cậy",
		"scanAnother":   "Quét món khác",
	},
}

// uiLanguage maps a requested language onto one the UI has labels for.
func uiLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := uiLabels[lang]; ok {
		return lang
	}
	return defaultUILanguage
}

// translate falls back to English, then to the key itself.
func translate(lang, key string) string {
	if s, ok := uiLabels[uiLanguage(lang)][key]; ok {
		return s
	}
	if s, ok := uiLabels[defaultUILanguage][key]; ok {
		return s
	}
	return key
}
