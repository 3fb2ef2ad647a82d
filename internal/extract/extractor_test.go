package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"street-food-scanner/internal/models"
)

const fullDish = `{
  "name": {"vietnamese": "Bánh mì", "english": "Vietnamese baguette", "pronunciation": "bun mee"},
  "description": "A crusty baguette filled with pork, pâté and pickled vegetables.",
  "ingredients": ["baguette", "pork", "pâté", "pickled carrot", "cilantro"],
  "calories": {"estimate": 550, "range": "450-650 kcal"},
  "allergens": ["gluten", "soy"],
  "spiceLevel": "medium",
  "culturalNote": "A legacy of French colonial baking.",
  "confidence": 0.92
}`

func float(v float64) *float64 { return &v }

func TestExtractScenarios(t *testing.T) {
	t.Run("fenced json block", func(t *testing.T) {
		text := "```json\n{\"name\":{\"vietnamese\":\"Phở\",\"english\":\"Pho\",\"pronunciation\":\"fuh\"},\"confidence\":0.9}\n```"

		out := Extract(text)
		require.Equal(t, KindSuccess, out.Kind)
		require.NotNil(t, out.Record)
		require.NotNil(t, out.Record.Name)
		assert.Equal(t, "Phở", out.Record.Name.Vietnamese)
		assert.Equal(t, "Pho", out.Record.Name.English)
		assert.Equal(t, "fuh", out.Record.Name.Pronunciation)
		require.NotNil(t, out.Record.Confidence)
		assert.InDelta(t, 0.9, *out.Record.Confidence, 1e-9)

		assert.Empty(t, out.Record.Description)
		assert.Nil(t, out.Record.Ingredients)
		assert.Nil(t, out.Record.Calories)
		assert.Nil(t, out.Record.Allergens)
		assert.Empty(t, out.Record.SpiceLevel)
		assert.Empty(t, out.Record.CulturalNote)
	})

	t.Run("not food inside prose", func(t *testing.T) {
		out := Extract(`Sorry, {"error": "NOT_FOOD"} is the result.`)
		assert.Equal(t, KindNotFood, out.Kind)
		assert.Nil(t, out.Record)
	})

	t.Run("plain prose is malformed", func(t *testing.T) {
		out := Extract("I'm not sure what this is.")
		assert.Equal(t, KindMalformed, out.Kind)
		assert.Nil(t, out.Record)
		assert.NotEmpty(t, out.Reason)
		assert.True(t, errors.Is(out.Err(), ErrMalformed))
	})
}

func TestExtractNotFoodVariants(t *testing.T) {
	cases := map[string]string{
		"bare":           `{"error": "NOT_FOOD"}`,
		"fenced":         "```json\n{\"error\": \"NOT_FOOD\"}\n```",
		"untagged fence": "```\n{\"error\":\"NOT_FOOD\"}\n```",
		"with prose":     "This is a photo of a cat.\n{\"error\": \"NOT_FOOD\"}\nThanks!",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			out := Extract(text)
			assert.Equal(t, KindNotFood, out.Kind)
			assert.NoError(t, out.Err())
		})
	}

	t.Run("other error value is not a not-food outcome", func(t *testing.T) {
		out := Extract(`{"error": "BLURRY"}`)
		assert.Equal(t, KindSuccess, out.Kind)
	})
}

func TestExtractFallbackParity(t *testing.T) {
	fenced := Extract("Here is the analysis:\n```json\n" + fullDish + "\n```\nEnjoy!")
	bare := Extract(fullDish)
	prose := Extract("The dish is: " + fullDish + " (best guess)")

	require.Equal(t, KindSuccess, fenced.Kind)
	assert.Equal(t, fenced, bare)
	assert.Equal(t, fenced, prose)

	r := fenced.Record
	assert.Equal(t, "Bánh mì", r.Name.Vietnamese)
	assert.Equal(t, []string{"baguette", "pork", "pâté", "pickled carrot", "cilantro"}, r.Ingredients)
	assert.Equal(t, &models.Calories{Estimate: float(550), Range: "450-650 kcal"}, r.Calories)
	assert.Equal(t, []string{"gluten", "soy"}, r.Allergens)
	assert.Equal(t, models.SpiceMedium, r.SpiceLevel)
	assert.Equal(t, "A legacy of French colonial baking.", r.CulturalNote)
	assert.InDelta(t, 0.92, *r.Confidence, 1e-9)
}

func TestExtractIdempotent(t *testing.T) {
	inputs := []string{
		fullDish,
		`{"error":"NOT_FOOD"}`,
		"no json here",
		"```json\n{broken\n```",
	}
	for _, in := range inputs {
		assert.Equal(t, Extract(in), Extract(in))
	}
}

func TestExtractFallsThroughBrokenFence(t *testing.T) {
	// Every strategy sees the same broken span; the fenced attempt is reported.
	out := Extract("```json\n{\"name\": }\n```")
	assert.Equal(t, KindMalformed, out.Kind)
	assert.Contains(t, out.Reason, "fenced")

	// The bracket fallback spans both brace pairs, so it cannot rescue the reply.
	text := "```json\n{not json}\n``` but really {\"confidence\": 0.5}"
	out = Extract(text)
	assert.Equal(t, KindMalformed, out.Kind, "bracket span runs from the first { to the last }")
}

func TestExtractMalformedInputs(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"array":       `["pho", "bun"]`,
		"null":        "null",
		"number":      "42",
		"unbalanced":  `{"name": {"english": "Pho"}`,
		"reversed":    "} oops {",
		"two objects": `{"a": 1} and {"b": 2}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			out := Extract(text)
			assert.Equal(t, KindMalformed, out.Kind)
			assert.Nil(t, out.Record)
		})
	}
}

func TestExtractLenientMapping(t *testing.T) {
	t.Run("string numbers are coerced", func(t *testing.T) {
		out := Extract(`{"confidence": "0.75", "calories": {"estimate": "420"}}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.InDelta(t, 0.75, *out.Record.Confidence, 1e-9)
		assert.InDelta(t, 420, *out.Record.Calories.Estimate, 1e-9)
	})

	t.Run("bare calorie number becomes the estimate", func(t *testing.T) {
		out := Extract(`{"calories": 300}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.Equal(t, &models.Calories{Estimate: float(300)}, out.Record.Calories)
	})

	t.Run("uncoercible fields are left absent", func(t *testing.T) {
		out := Extract(`{"confidence": "high", "name": "Pho", "ingredients": {"a": 1}, "description": ["x"], "spiceLevel": true}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.Nil(t, out.Record.Confidence)
		assert.Nil(t, out.Record.Name)
		assert.Nil(t, out.Record.Ingredients)
		assert.Empty(t, out.Record.Description)
		assert.Empty(t, out.Record.SpiceLevel)
	})

	t.Run("boolean text fields are left absent", func(t *testing.T) {
		out := Extract(`{"spiceLevel": true, "culturalNote": false, "allergens": [true, "peanut"]}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.Empty(t, out.Record.SpiceLevel)
		assert.Empty(t, out.Record.CulturalNote)
		assert.Equal(t, []string{"peanut"}, out.Record.Allergens)
	})

	t.Run("out of float range number drops only that field", func(t *testing.T) {
		out := Extract(`{"name": {"english": "Pho"}, "confidence": 1e400, "calories": {"estimate": 1e999, "range": "400-500"}}`)
		require.Equal(t, KindSuccess, out.Kind, out.Reason)
		assert.Nil(t, out.Record.Confidence)
		assert.Equal(t, "Pho", out.Record.Name.English)
		assert.Equal(t, &models.Calories{Range: "400-500"}, out.Record.Calories)
	})

	t.Run("large integers keep their value", func(t *testing.T) {
		out := Extract(`{"calories": 12345678901}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.InDelta(t, 12345678901, *out.Record.Calories.Estimate, 1e-3)
	})

	t.Run("out of range values pass through", func(t *testing.T) {
		out := Extract(`{"confidence": 1.7, "calories": {"estimate": -5}}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.InDelta(t, 1.7, *out.Record.Confidence, 1e-9)
		assert.InDelta(t, -5, *out.Record.Calories.Estimate, 1e-9)
	})

	t.Run("allergens keep first occurrence order", func(t *testing.T) {
		out := Extract(`{"allergens": ["peanut", "fish", " peanut ", "shellfish", "fish"], "ingredients": ["lime", "lime"]}`)
		require.Equal(t, KindSuccess, out.Kind)
		assert.Equal(t, []string{"peanut", "fish", "shellfish"}, out.Record.Allergens)
		assert.Equal(t, []string{"lime", "lime"}, out.Record.Ingredients)
	})

	t.Run("spice level is normalized", func(t *testing.T) {
		out := Extract(`{"spiceLevel": " HOT "}`)
		assert.Equal(t, models.SpiceHot, out.Record.SpiceLevel)

		out = Extract(`{"spiceLevel": "numbing"}`)
		assert.Equal(t, models.SpiceLevel("numbing"), out.Record.SpiceLevel)
		assert.False(t, out.Record.SpiceLevel.Valid())
	})

	t.Run("empty object succeeds with an empty record", func(t *testing.T) {
		out := Extract("{}")
		require.Equal(t, KindSuccess, out.Kind)
		assert.Equal(t, &models.FoodRecord{}, out.Record)
	})
}

func TestStrictValidation(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	strict := New(WithStrictValidation(v))

	t.Run("conforming reply passes", func(t *testing.T) {
		out := strict.Extract(fullDish)
		assert.Equal(t, KindSuccess, out.Kind)
		assert.Equal(t, Extract(fullDish), out)
	})

	t.Run("confidence out of range is rejected", func(t *testing.T) {
		out := strict.Extract(`{"confidence": 1.5}`)
		assert.Equal(t, KindMalformed, out.Kind)
		assert.Contains(t, out.Reason, "schema violation")
	})

	t.Run("unknown spice level is rejected", func(t *testing.T) {
		out := strict.Extract(`{"spiceLevel": "numbing"}`)
		assert.Equal(t, KindMalformed, out.Kind)
	})

	t.Run("not food skips validation", func(t *testing.T) {
		out := strict.Extract(`{"error": "NOT_FOOD"}`)
		assert.Equal(t, KindNotFood, out.Kind)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "not_food", KindNotFood.String())
	assert.Equal(t, "malformed", KindMalformed.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
