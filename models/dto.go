package models

type TagRequestIn struct {
	ImageURL string `json:"image_url" validate:"max=2048"`
}

type OutfitRequestIn struct {
	Context       string         `json:"context" validate:"max=2000"`
	Wardrobe      []WardrobeItem `json:"wardrobe" validate:"max=500,dive"`
	RecentItemIDs []string       `json:"recent_item_ids" validate:"max=100"`
	LockedItems   []string       `json:"locked_items" validate:"max=10"`
}

type StyleSingleItemIn struct {
	Context     string         `json:"context" validate:"max=2000"`
	Vibe        string         `json:"vibe" validate:"max=200"`
	Season      string         `json:"season" validate:"max=50"`
	Temperature *float64       `json:"temperature"`
	Wardrobe    []WardrobeItem `json:"wardrobe" validate:"max=500,dive"`
	LockedItem  *WardrobeItem  `json:"locked_item"`
}

type StepwiseOutfitIn struct {
	Context     string         `json:"context" validate:"max=2000"`
	Vibe        string         `json:"vibe" validate:"max=200"`
	Season      string         `json:"season" validate:"max=50"`
	Temperature *float64       `json:"temperature"`
	Wardrobe    []WardrobeItem `json:"wardrobe" validate:"max=500,dive"`
}

type OutfitNameIn struct {
	Vibe        string   `json:"vibe" validate:"max=200"`
	Context     string   `json:"context" validate:"max=2000"`
	Season      string   `json:"season" validate:"max=50"`
	Temperature *float64 `json:"temperature"`
	Items       []string `json:"items" validate:"max=20"`
}

type OutfitNameOut struct {
	Name string `json:"name"`
}

type ProfileIn struct {
	Name             string   `json:"name" validate:"max=100"`
	StyleTags        []string `json:"style_tags" validate:"max=20"`
	LocationLat      *float64 `json:"location_lat" validate:"omitempty,min=-90,max=90"`
	LocationLon      *float64 `json:"location_lon" validate:"omitempty,min=-180,max=180"`
	PushToken        *string  `json:"push_token" validate:"omitempty,max=4096"`
	Platform         string   `json:"platform" validate:"omitempty,platform"`
	DailyOutfitAlert *bool    `json:"daily_outfit_alert"`
}

// WardrobeRecordIn saves one item. Without a tag the image is tagged by the stylist.
type WardrobeRecordIn struct {
	ID       string      `json:"id" validate:"required,max=200"`
	ImageURL *string     `json:"image_url" validate:"omitempty,url,max=2048"`
	Tag      *GarmentTag `json:"tag"`
}
