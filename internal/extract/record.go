// internal/extract/record.go
package extract

import (
	"strings"

	"github.com/spf13/cast"

	"street-food-scanner/internal/models"
)

// toFoodRecord coerces each field on its own. A field that is missing or cannot be
// coerced is left absent; it never fails the whole record.
func toFoodRecord(obj map[string]interface{}) *models.FoodRecord {
	record := &models.FoodRecord{
		Name:         toDishName(obj["name"]),
		Description:  toText(obj["description"]),
		Ingredients:  toStringList(obj["ingredients"], false),
		Calories:     toCalories(obj["calories"]),
		Allergens:    toStringList(obj["allergens"], true),
		CulturalNote: toText(obj["culturalNote"]),
	}

	if raw := toText(obj["spiceLevel"]); raw != "" {
		// Unknown levels are kept; the UI falls back to "not spicy" for them.
		record.SpiceLevel, _ = models.ParseSpiceLevel(raw)
	}

	if v, ok := toNumber(obj["confidence"]); ok {
		record.Confidence = &v
	}

	return record
}

func toDishName(v interface{}) *models.DishName {
	m, err := cast.ToStringMapE(v)
	if err != nil || len(m) == 0 {
		return nil
	}
	name := &models.DishName{
		Vietnamese:    toText(m["vietnamese"]),
		English:       toText(m["english"]),
		Pronunciation: toText(m["pronunciation"]),
	}
	if *name == (models.DishName{}) {
		return nil
	}
	return name
}

func toCalories(v interface{}) *models.Calories {
	// A bare number is read as the estimate.
	if n, ok := toNumber(v); ok {
		return &models.Calories{Estimate: &n}
	}

	m, err := cast.ToStringMapE(v)
	if err != nil || len(m) == 0 {
		return nil
	}
	cal := &models.Calories{Range: toText(m["range"])}
	if n, ok := toNumber(m["estimate"]); ok {
		cal.Estimate = &n
	}
	if cal.Estimate == nil && cal.Range == "" {
		return nil
	}
	return cal
}

func toText(v interface{}) string {
	switch v.(type) {
	case nil, bool, map[string]interface{}, []interface{}:
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func toNumber(v interface{}) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// toStringList keeps order. With unique set, later duplicates are dropped.
func toStringList(v interface{}, unique bool) []string {
	var items []interface{}
	switch t := v.(type) {
	case []interface{}:
		items = t
	case string:
		items = []interface{}{t}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s := strings.TrimSpace(toText(item))
		if s == "" {
			continue
		}
		if unique {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
