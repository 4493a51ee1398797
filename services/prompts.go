package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"closetapi/models"
)

const tagSystemPrompt = `You are a fashion tagging assistant for a wardrobe app.
Classify the clothing item in the image.

Categories for "main_category":
%s

Seasons for "season":
%s

Generate a "name" field with 3-4 descriptive words (no brands).

Return only a raw JSON object, no markdown:
{
  "name": "",
  "main_category": "",
  "type": "",
  "primary_color": "",
  "secondary_colors": [],
  "pattern_description": "",
  "vibe_tags": [],
  "season": ""
}`

const outfitSystemPrompt = `You are an AI stylist for a wardrobe app. Create a color-coordinated outfit.

RULES:
- Exactly 1 top, 1 bottom and 1 shoes, unless a onepiece is used
- A onepiece replaces both top and bottom: never combine it with a top or a bottom
- With a onepiece include %s
- A layer is only worn over a top%s
- At most 1 outerwear and at most 1 accessory
- Use only wardrobe items, referenced by their exact "id"
- Give one short sentence of reasoning per item

RESPONSE FORMAT (raw JSON only, no markdown):
{ "outfit": [ { "id": "<item_id>", "reason": "..." } ] }`

const stepwiseSystemPrompt = `You are an AI stylist for a wardrobe app. The outfit is built one item at a time.
Pick the single best option that works with the items already selected and the context.
Use only the listed options, referenced by their exact "id".

RESPONSE FORMAT (raw JSON only, no markdown):
{ "id": "<item_id>", "reason": "..." }`

const nameSystemPrompt = `You name outfits for a wardrobe app. Create a short, stylish outfit name (3-6 words). Only return the name, no quotes, no punctuation at the end.`

func bulletList[T ~string](values []T) string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = fmt.Sprintf("- %q", string(v))
	}
	return strings.Join(lines, "\n")
}

var categoryHints = map[models.Category]string{
	models.CategoryTop:       "shirts, blouses, tanks, crop tops",
	models.CategoryBottom:    "pants, jeans, shorts, skirts",
	models.CategoryShoes:     "sneakers, boots, heels",
	models.CategoryOuterwear: "jackets and coats",
	models.CategoryAccessory: "hats, bags, scarves, jewelry",
	models.CategoryLayer:     "sweaters, hoodies, cardigans worn over tops but under jackets",
	models.CategoryOnepiece:  "dresses, jumpsuits, rompers that combine top and bottom",
}

func categoryList() string {
	lines := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		lines[i] = fmt.Sprintf("- %q: %s", string(c), categoryHints[c])
	}
	return strings.Join(lines, "\n")
}

func TagSystemPrompt() string {
	return fmt.Sprintf(tagSystemPrompt, categoryList(), bulletList(models.Seasons))
}

func OutfitSystemPrompt(requireShoesWithOnepiece, allowLayerOverOnepiece bool) string {
	shoes := "at most 1 shoes"
	if requireShoesWithOnepiece {
		shoes = "exactly 1 shoes"
	}
	layer := ""
	if allowLayerOverOnepiece {
		layer = " or a onepiece"
	}
	return fmt.Sprintf(outfitSystemPrompt, shoes, layer)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func orEmptyList(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func OutfitUserPrompt(request OutfitRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOCKED ITEMS (already in the outfit, do not replace or duplicate): %s\n", mustJSON(orEmptyList(request.LockedItemIDs)))
	fmt.Fprintf(&b, "RECENTLY USED (avoid when possible): %s\n", mustJSON(orEmptyList(request.RecentItemIDs)))
	fmt.Fprintf(&b, "CONTEXT: %s\n\n", request.Context)
	fmt.Fprintf(&b, "WARDROBE: %s", mustJSON(request.Wardrobe))
	return b.String()
}

func StepwiseUserPrompt(category models.Category, styleContext string, selected models.OutfitSelection, options []models.WardrobeItem) string {
	if selected == nil {
		selected = models.OutfitSelection{}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT: the best %s\n", category)
	fmt.Fprintf(&b, "CONTEXT: %s\n", styleContext)
	fmt.Fprintf(&b, "ALREADY SELECTED: %s\n\n", mustJSON(selected))
	fmt.Fprintf(&b, "OPTIONS: %s", mustJSON(options))
	return b.String()
}

// StyleContext folds the optional vibe, season and temperature into one context line.
func StyleContext(context, vibe, season string, temperature *float64) string {
	parts := []string{}
	if strings.TrimSpace(context) != "" {
		parts = append(parts, "Context: "+strings.TrimSpace(context))
	}
	if vibe != "" {
		parts = append(parts, "Vibe: "+vibe)
	}
	if season != "" {
		parts = append(parts, "Season: "+season)
	}
	if temperature != nil {
		parts = append(parts, fmt.Sprintf("Temperature: %.0f°F", *temperature))
	}
	return strings.Join(parts, "; ")
}

func OutfitNamePrompt(request NameRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vibe: %s\n", request.Vibe)
	fmt.Fprintf(&b, "Context: %s\n", request.Context)
	if request.Season != "" {
		fmt.Fprintf(&b, "Season: %s\n", request.Season)
	}
	if request.Temperature != nil {
		fmt.Fprintf(&b, "Temperature: %.0f°F\n", *request.Temperature)
	}
	fmt.Fprintf(&b, "Clothing items: %s", strings.Join(request.Items, ", "))
	return b.String()
}

// correctionNote is appended to the prompt when a response is retried.
func correctionNote(err error) string {
	return fmt.Sprintf("\n\nYour previous response was rejected (%v). Respond again following the response format exactly.", err)
}
