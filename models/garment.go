package models

// GarmentTag is the validated classification of one clothing image.
type GarmentTag struct {
	Name               string   `json:"name,omitempty"`
	MainCategory       Category `json:"main_category" validate:"category"`
	Type               string   `json:"type"`
	PrimaryColor       string   `json:"primary_color"`
	SecondaryColors    []string `json:"secondary_colors"`
	PatternDescription string   `json:"pattern_description"`
	VibeTags           []string `json:"vibe_tags"`
	Season             Season   `json:"season" validate:"season"`
}

// WardrobeItem is a caller supplied, tagged garment. Only ID and MainCategory are
// used by the outfit rules, the rest is passed to the model as advice.
type WardrobeItem struct {
	ID                 string   `json:"id" validate:"required,max=200"`
	Name               string   `json:"name,omitempty"`
	MainCategory       Category `json:"main_category" validate:"required,category"`
	Type               string   `json:"type,omitempty"`
	PrimaryColor       string   `json:"primary_color,omitempty"`
	SecondaryColors    []string `json:"secondary_colors,omitempty"`
	PatternDescription string   `json:"pattern_description,omitempty"`
	VibeTags           []string `json:"vibe_tags,omitempty"`
	Season             Season   `json:"season,omitempty"`
}

// WardrobeItemFromTag attaches an id to a tag.
func WardrobeItemFromTag(id string, tag GarmentTag) WardrobeItem {
	return WardrobeItem{
		ID:                 id,
		Name:               tag.Name,
		MainCategory:       tag.MainCategory,
		Type:               tag.Type,
		PrimaryColor:       tag.PrimaryColor,
		SecondaryColors:    tag.SecondaryColors,
		PatternDescription: tag.PatternDescription,
		VibeTags:           tag.VibeTags,
		Season:             tag.Season,
	}
}

type OutfitSelectionEntry struct {
	ItemID string `json:"id"`
	Reason string `json:"reason"`
}

// OutfitSelection is an ordered, validated outfit. It is never mutated after validation.
type OutfitSelection []OutfitSelectionEntry

// ItemIDs returns the referenced ids in order.
func (s OutfitSelection) ItemIDs() []string {
	ids := make([]string, len(s))
	for i, entry := range s {
		ids[i] = entry.ItemID
	}
	return ids
}

// OutfitResponse is the wire shape of a generated outfit.
type OutfitResponse struct {
	Outfit OutfitSelection `json:"outfit"`
}
