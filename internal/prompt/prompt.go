// internal/prompt/prompt.go
package prompt

// Food asks the model for the dish JSON read by the extract package. It takes no
// language parameter: replies are always requested in the shape below, in English.
const Food = `You are a Vietnamese street food expert. Analyze this image and return ONLY a JSON object with the following structure. Do not include any markdown formatting or explanation.

{
  "name": {
    "vietnamese": "string",
    "english": "string",
    "pronunciation": "string"
  },
  "description": "string (max 100 words)",
  "ingredients": ["string"],
  "calories": {
    "estimate": number,
    "range": "string"
  },
  "allergens": ["string"],
  "spiceLevel": "mild" | "medium" | "hot",
  "culturalNote": "string (max 50 words)",
  "confidence": number (0-1)
}

If the image is not food, return: {"error": "NOT_FOOD"}`
